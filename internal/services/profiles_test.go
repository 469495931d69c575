package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/rs/zerolog"

	"medtrack-server/internal/models"
	"medtrack-server/internal/repository"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func newProfileService() (*ProfileService, *mockProfileRepo, *mockUserRepo) {
	profiles := newMockProfileRepo()
	users := newMockUserRepo()
	return NewProfileService(profiles, users, zerolog.Nop()), profiles, users
}

func registerPatient(t *testing.T, s *ProfileService, users *mockUserRepo, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: models.RolePatient}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSelf(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestProfiles_CreateGeneratesUniqueCodes(t *testing.T) {
	s, _, users := newProfileService()
	patient := registerPatient(t, s, users, "maria")
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := s.Create(ctx, patient.ID, ProfileInput{Name: "Companion", Role: models.RoleCompanion})
		if err != nil {
			t.Fatal(err)
		}
		if !codePattern.MatchString(p.Code) {
			t.Fatalf("code %q not in [A-Z0-9]{6}", p.Code)
		}
		if seen[p.Code] {
			t.Fatalf("duplicate code %q", p.Code)
		}
		seen[p.Code] = true
		if p.Status != models.ProfilePending || p.IsManager {
			t.Errorf("new profile must be a pending non-manager, got %+v", p)
		}
	}
}

func TestProfiles_CreateRetriesOnCollision(t *testing.T) {
	s, profiles, _ := newProfileService()
	profiles.collide = 1

	p, err := s.Create(context.Background(), "patient-1", ProfileInput{Name: "Ana", Role: models.RoleCaregiver})
	if err != nil {
		t.Fatalf("expected a second attempt to succeed, got %v", err)
	}
	if p.Code == "" {
		t.Error("expected a code")
	}
}

func TestProfiles_CreateRejectsUnknownRole(t *testing.T) {
	s, _, _ := newProfileService()
	if _, err := s.Create(context.Background(), "patient-1", ProfileInput{Name: "X", Role: "doctor"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestProfiles_LinkAndAccess(t *testing.T) {
	s, _, users := newProfileService()
	patient := registerPatient(t, s, users, "maria")
	ctx := context.Background()

	invite, err := s.Create(ctx, patient.ID, ProfileInput{Name: "João", Role: models.RoleCaregiver})
	if err != nil {
		t.Fatal(err)
	}
	caregiver := Actor{AccountID: "caregiver-1", Role: models.RoleCaregiver}

	if ok, _ := s.CanAccess(ctx, caregiver, patient.ID); ok {
		t.Fatal("pending profile must not grant access")
	}
	if _, err := s.Lookup(ctx, "ZZZZZZ"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown code, got %v", err)
	}

	linked, err := s.Link(ctx, caregiver.AccountID, invite.Code)
	if err != nil {
		t.Fatal(err)
	}
	if linked.Status != models.ProfileActive || *linked.AccountID != caregiver.AccountID {
		t.Errorf("unexpected linked profile %+v", linked)
	}
	if ok, _ := s.CanAccess(ctx, caregiver, patient.ID); !ok {
		t.Error("active profile must grant access")
	}
	if _, err := s.Link(ctx, "intruder", invite.Code); !errors.Is(err, ErrAlreadyLinked) {
		t.Errorf("expected ErrAlreadyLinked, got %v", err)
	}

	contexts, err := s.Contexts(ctx, caregiver.AccountID)
	if err != nil || len(contexts) != 1 || contexts[0].PatientID != patient.ID {
		t.Errorf("unexpected contexts %+v %v", contexts, err)
	}
}

func TestProfiles_CurrentContext(t *testing.T) {
	s, _, users := newProfileService()
	maria := registerPatient(t, s, users, "maria")
	pedro := registerPatient(t, s, users, "pedro")
	ctx := context.Background()

	self := Actor{AccountID: maria.ID, Role: models.RolePatient}
	got, err := s.CurrentContext(ctx, self, "")
	if err != nil || got != maria.ID {
		t.Errorf("default context must be the account itself, got %q %v", got, err)
	}
	if _, err := s.CurrentContext(ctx, self, pedro.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	admin := Actor{AccountID: "admin-1", Role: models.RoleAdmin}
	users.Save(ctx, &models.User{BaseModel: models.BaseModel{ID: "admin-1"}, Role: models.RoleAdmin})
	if _, err := s.SwitchContext(ctx, admin, pedro.ID); err != nil {
		t.Fatal(err)
	}
	got, err = s.CurrentContext(ctx, admin, "")
	if err != nil || got != pedro.ID {
		t.Errorf("stored context must be used, got %q %v", got, err)
	}
}

func TestProfiles_SetManager(t *testing.T) {
	s, profiles, users := newProfileService()
	patient := registerPatient(t, s, users, "maria")
	ctx := context.Background()

	other, _ := s.Create(ctx, patient.ID, ProfileInput{Name: "Filha", Role: models.RoleCompanion})
	stranger := Actor{AccountID: "stranger", Role: models.RoleCompanion}
	if _, err := s.SetManager(ctx, stranger, patient.ID, other.ID); !errors.Is(err, ErrManagerRequired) {
		t.Fatalf("expected ErrManagerRequired, got %v", err)
	}

	manager := Actor{AccountID: patient.ID, Role: models.RolePatient}
	p, err := s.SetManager(ctx, manager, patient.ID, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsManager {
		t.Error("expected the new manager")
	}

	list, _ := profiles.ListByPatient(ctx, patient.ID)
	managers := 0
	for _, p := range list {
		if p.IsManager {
			managers++
		}
	}
	if managers != 1 {
		t.Errorf("expected exactly one manager, got %d", managers)
	}

	if err := s.Delete(ctx, patient.ID, other.ID); !errors.Is(err, ErrManagerProfile) {
		t.Errorf("the manager profile must not be deleted, got %v", err)
	}
	if err := s.Delete(ctx, "another-patient", other.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("profiles of another patient are not found, got %v", err)
	}
}

func TestProfiles_UpdateStatus(t *testing.T) {
	s, _, users := newProfileService()
	patient := registerPatient(t, s, users, "maria")
	ctx := context.Background()
	p, _ := s.Create(ctx, patient.ID, ProfileInput{Name: "Filha", Role: models.RoleCompanion})

	updated, err := s.UpdateStatus(ctx, patient.ID, p.ID, models.ProfileInactive)
	if err != nil || updated.Status != models.ProfileInactive {
		t.Errorf("unexpected result %+v %v", updated, err)
	}
	if _, err := s.UpdateStatus(ctx, patient.ID, p.ID, "archived"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
