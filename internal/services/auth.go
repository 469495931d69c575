package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medtrack-server/internal/config"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
	"medtrack-server/internal/repository"
	"medtrack-server/internal/utils"
)

var (
	ErrEmailTaken          = errors.New("user with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("refresh token not found, expired, or revoked")
	ErrInvitationUnusable  = errors.New("invitation expired or already accepted")
)

// TokenStore keeps issued refresh tokens.
type TokenStore interface {
	StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, userID, token, next string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) (string, error)
}

// Session is a freshly issued token pair.
type Session struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// RegisterInput holds the fields of a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     models.Role
}

// AuthService handles accounts, sessions and admin invitations.
type AuthService struct {
	users       repository.Users
	tokens      TokenStore
	invitations repository.Invitations
	profiles    *ProfileService
	registry    *occurrence.Registry
	cfg         *config.Config
	now         func() time.Time
	logger      zerolog.Logger
}

func NewAuthService(
	users repository.Users,
	tokens TokenStore,
	invitations repository.Invitations,
	profiles *ProfileService,
	registry *occurrence.Registry,
	cfg *config.Config,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		invitations: invitations,
		profiles:    profiles,
		registry:    registry,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger.With().Str("component", "auth").Logger(),
	}
}

func (s *AuthService) refreshExpiry() time.Time {
	return s.now().Add(time.Duration(s.cfg.JWTRefreshExpirationHours) * time.Hour)
}

// Register creates an account. A patient account gets its own patient
// record, managed by itself. Admin accounts only come from invitations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !in.Role.Valid() || in.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: role %q cannot register", ErrInvalidInput, in.Role)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &models.User{Name: in.Name, Email: email, Phone: in.Phone, Role: in.Role}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if user.Role == models.RolePatient {
		if _, err := s.profiles.CreateSelf(ctx, user); err != nil {
			return nil, fmt.Errorf("create patient profile: %w", err)
		}
	}
	s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("account registered")
	return user, nil
}

// Login checks the credentials and issues a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !user.CheckPassword(password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (Session, error) {
	access, refresh, err := utils.GenerateTokens(user, s.cfg)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.StoreRefreshToken(ctx, user.ID, refresh, s.refreshExpiry()); err != nil {
		return Session{}, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return Session{AccessToken: access, RefreshToken: refresh, User: user.Sanitize()}, nil
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// issued.
func (s *AuthService) Refresh(ctx context.Context, token string) (Session, error) {
	claims, err := utils.ValidateToken(token, s.cfg.JWTRefreshSecret)
	if err != nil {
		return Session{}, ErrInvalidRefreshToken
	}
	user, err := s.users.Get(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, err
	}

	access, refresh, err := utils.GenerateTokens(user, s.cfg)
	if err != nil {
		return Session{}, err
	}
	err = s.tokens.RotateRefreshToken(ctx, user.ID, token, refresh, s.refreshExpiry())
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: access, RefreshToken: refresh, User: user.Sanitize()}, nil
}

// Logout revokes token and drops the account's pending undo. An unknown or
// already revoked token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	userID, err := s.tokens.RevokeRefreshToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.registry.Forget(userID)
	return nil
}

// Invite creates an invitation for another admin.
func (s *AuthService) Invite(ctx context.Context, invitedBy, email string) (*models.Invitation, error) {
	inv := &models.Invitation{
		Token:     uuid.New().String(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      models.RoleAdmin,
		InvitedBy: invitedBy,
		ExpiresAt: s.now().Add(time.Duration(s.cfg.InvitationExpiryHours) * time.Hour),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info().Str("invited_by", invitedBy).Str("invitation_id", inv.ID).Msg("invitation created")
	return inv, nil
}

// Invitation returns the invitation with token if it can still be accepted.
func (s *AuthService) Invitation(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !inv.Usable(s.now()) {
		return nil, ErrInvitationUnusable
	}
	return inv, nil
}

// AcceptInvitation creates the invited account and signs it in.
func (s *AuthService) AcceptInvitation(ctx context.Context, token, name, password string) (Session, error) {
	inv, err := s.Invitation(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if _, err := s.users.GetByEmail(ctx, inv.Email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Session{}, err
	}

	user := &models.User{Name: name, Email: inv.Email, Role: inv.Role}
	if err := user.SetPassword(password); err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}
	accepted := s.now()
	inv.AcceptedAt = &accepted
	if err := s.invitations.Accept(ctx, inv, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}
	return s.issue(ctx, user)
}

// UpdateAccount changes the name and phone of accountID. Empty values keep
// the current ones.
func (s *AuthService) UpdateAccount(ctx context.Context, accountID, name, phone string) (*models.User, error) {
	user, err := s.users.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		user.Name = name
	}
	if phone != "" {
		user.Phone = phone
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Account returns accountID.
func (s *AuthService) Account(ctx context.Context, accountID string) (*models.User, error) {
	return s.users.Get(ctx, accountID)
}
