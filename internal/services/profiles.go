package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"medtrack-server/internal/models"
	"medtrack-server/internal/repository"
	"medtrack-server/internal/utils"
)

var (
	ErrAlreadyLinked   = errors.New("profile is already linked to another account")
	ErrManagerRequired = errors.New("only the manager can do this")
	ErrManagerProfile  = errors.New("transfer the manager role before deleting this profile")
)

// ProfileInput holds the fields of a new profile.
type ProfileInput struct {
	Name  string
	Email string
	Phone string
	Role  models.Role
}

// ProfileService manages the profiles attached to a patient record and the
// access check behind the current context.
type ProfileService struct {
	profiles repository.Profiles
	users    repository.Users
	logger   zerolog.Logger
}

func NewProfileService(profiles repository.Profiles, users repository.Users, logger zerolog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		users:    users,
		logger:   logger.With().Str("component", "profiles").Logger(),
	}
}

// createWithCode stores p under a code no other profile uses. A collision
// with a code created concurrently gets one more try.
func (s *ProfileService) createWithCode(ctx context.Context, p *models.UserProfile) error {
	for attempt := 0; attempt < 2; attempt++ {
		codes, err := s.profiles.Codes(ctx)
		if err != nil {
			return err
		}
		code, err := utils.GenerateUniqueCode(codes)
		if err != nil {
			return err
		}
		p.Code = code
		err = s.profiles.Create(ctx, p)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return utils.ErrCodeSpaceExhausted
}

// CreateSelf creates the patient profile of a newly registered patient
// account. The patient record id is the account id and the patient manages
// it.
func (s *ProfileService) CreateSelf(ctx context.Context, account *models.User) (*models.UserProfile, error) {
	accountID := account.ID
	p := &models.UserProfile{
		PatientID: account.ID,
		AccountID: &accountID,
		Name:      account.Name,
		Email:     account.Email,
		Phone:     account.Phone,
		Role:      models.RolePatient,
		Status:    models.ProfileActive,
		IsManager: true,
	}
	if err := s.createWithCode(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Create adds a pending profile to patientID. Whoever receives its code can
// link an account to it.
func (s *ProfileService) Create(ctx context.Context, patientID string, in ProfileInput) (*models.UserProfile, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	p := &models.UserProfile{
		PatientID: patientID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Role:      in.Role,
		Status:    models.ProfilePending,
	}
	if err := s.createWithCode(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", patientID).Str("profile_id", p.ID).Msg("profile created")
	return p, nil
}

func (s *ProfileService) List(ctx context.Context, patientID string) ([]models.UserProfile, error) {
	return s.profiles.ListByPatient(ctx, patientID)
}

// Contexts returns the active profiles of accountID: the patients it can
// switch to.
func (s *ProfileService) Contexts(ctx context.Context, accountID string) ([]models.UserProfile, error) {
	all, err := s.profiles.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, p := range all {
		if p.Status == models.ProfileActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// Lookup finds a profile by its code.
func (s *ProfileService) Lookup(ctx context.Context, code string) (*models.UserProfile, error) {
	return s.profiles.GetByCode(ctx, code)
}

// Link attaches accountID to the profile with code and activates it.
func (s *ProfileService) Link(ctx context.Context, accountID, code string) (*models.UserProfile, error) {
	p, err := s.profiles.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p.AccountID != nil && *p.AccountID != accountID {
		return nil, ErrAlreadyLinked
	}
	id := accountID
	p.AccountID = &id
	p.Status = models.ProfileActive
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) inPatient(ctx context.Context, patientID, id string) (*models.UserProfile, error) {
	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PatientID != patientID {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

// UpdateStatus sets the status of profile id on patientID.
func (s *ProfileService) UpdateStatus(ctx context.Context, patientID, id string, status models.ProfileStatus) (*models.UserProfile, error) {
	switch status {
	case models.ProfileActive, models.ProfileInactive, models.ProfilePending:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	p, err := s.inPatient(ctx, patientID, id)
	if err != nil {
		return nil, err
	}
	p.Status = status
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetManager makes profile id the single manager of patientID. Only the
// current manager, or an admin, may hand the role over.
func (s *ProfileService) SetManager(ctx context.Context, actor Actor, patientID, id string) (*models.UserProfile, error) {
	if err := s.requireManager(ctx, actor, patientID); err != nil {
		return nil, err
	}
	if _, err := s.inPatient(ctx, patientID, id); err != nil {
		return nil, err
	}
	if err := s.profiles.SetManager(ctx, patientID, id); err != nil {
		return nil, err
	}
	return s.profiles.Get(ctx, id)
}

// Delete removes profile id from patientID. The manager profile cannot be
// deleted.
func (s *ProfileService) Delete(ctx context.Context, patientID, id string) error {
	p, err := s.inPatient(ctx, patientID, id)
	if err != nil {
		return err
	}
	if p.IsManager {
		return ErrManagerProfile
	}
	return s.profiles.Delete(ctx, id)
}

func (s *ProfileService) requireManager(ctx context.Context, actor Actor, patientID string) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	profiles, err := s.profiles.ListByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p.IsManager && p.AccountID != nil && *p.AccountID == actor.AccountID {
			return nil
		}
	}
	return ErrManagerRequired
}

// Actor is the authenticated account making a request.
type Actor struct {
	AccountID string
	Role      models.Role
}

// CanAccess reports whether actor may work on patientID: admins always,
// a patient on its own record, everyone else through an active profile.
func (s *ProfileService) CanAccess(ctx context.Context, actor Actor, patientID string) (bool, error) {
	if actor.Role == models.RoleAdmin || actor.AccountID == patientID {
		return true, nil
	}
	return s.profiles.HasAccess(ctx, actor.AccountID, patientID)
}

// CurrentContext resolves the patient accountID is looking at: requested
// when non-empty, else the context stored on the account, else the account
// itself.
func (s *ProfileService) CurrentContext(ctx context.Context, actor Actor, requested string) (string, error) {
	patientID := requested
	if patientID == "" {
		u, err := s.users.Get(ctx, actor.AccountID)
		if err != nil {
			return "", err
		}
		patientID = u.ContextPatientID
	}
	if patientID == "" {
		patientID = actor.AccountID
	}
	ok, err := s.CanAccess(ctx, actor, patientID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrForbidden
	}
	return patientID, nil
}

// SwitchContext stores patientID as the current context of the account.
func (s *ProfileService) SwitchContext(ctx context.Context, actor Actor, patientID string) (*models.User, error) {
	ok, err := s.CanAccess(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	u, err := s.users.Get(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	u.ContextPatientID = patientID
	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
