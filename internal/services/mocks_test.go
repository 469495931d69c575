package services

import (
	"context"
	"sync"
	"time"

	"medtrack-server/internal/models"
	"medtrack-server/internal/repository"
)

// -- Mock Repositories --

type mockMedRepo struct {
	mu      sync.Mutex
	meds    map[string]models.Medication
	logs    map[string]models.DoseLog
	failErr error
}

func newMockMedRepo() *mockMedRepo {
	return &mockMedRepo{meds: make(map[string]models.Medication), logs: make(map[string]models.DoseLog)}
}

func (m *mockMedRepo) put(med models.Medication) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if med.ID == "" {
		med.ID = models.NewID()
	}
	m.meds[med.ID] = med
}

func (m *mockMedRepo) stored(id string) models.Medication {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meds[id]
}

func (m *mockMedRepo) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func (m *mockMedRepo) ListByPatient(_ context.Context, patientID string) ([]models.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Medication
	for _, med := range m.meds {
		if med.PatientID == patientID {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *mockMedRepo) Get(_ context.Context, patientID, id string) (*models.Medication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.meds[id]
	if !ok || med.PatientID != patientID {
		return nil, repository.ErrNotFound
	}
	return &med, nil
}

func (m *mockMedRepo) Create(_ context.Context, med *models.Medication) error {
	if med.ID == "" {
		med.ID = models.NewID()
	}
	med.CreatedAt = time.Now()
	m.put(*med)
	return nil
}

func (m *mockMedRepo) Save(_ context.Context, med *models.Medication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.meds[med.ID] = *med
	return nil
}

func (m *mockMedRepo) Delete(_ context.Context, patientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	med, ok := m.meds[id]
	if !ok || med.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(m.meds, id)
	return nil
}

func (m *mockMedRepo) RecordDose(_ context.Context, med *models.Medication, log *models.DoseLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	for _, l := range m.logs {
		if l.MedicationID == log.MedicationID && models.DayKey(&l.Day) == models.DayKey(&log.Day) && l.Hora == log.Hora {
			return repository.ErrDuplicate
		}
	}
	m.logs[log.ID] = *log
	m.meds[med.ID] = *med
	return nil
}

func (m *mockMedRepo) RevertDose(_ context.Context, med *models.Medication, logID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	delete(m.logs, logID)
	m.meds[med.ID] = *med
	return nil
}

func (m *mockMedRepo) DoseLogs(_ context.Context, patientID string, from, to time.Time) ([]models.DoseLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DoseLog
	for _, l := range m.logs {
		if l.PatientID == patientID {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockApptRepo struct {
	mu    sync.Mutex
	appts map[string]models.Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[string]models.Appointment)}
}

func (m *mockApptRepo) put(a models.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = models.NewID()
	}
	m.appts[a.ID] = a
}

func (m *mockApptRepo) stored(id string) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appts[id]
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockApptRepo) Get(_ context.Context, patientID, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.PatientID != patientID {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *mockApptRepo) Create(_ context.Context, a *models.Appointment) error {
	if a.ID == "" {
		a.ID = models.NewID()
	}
	m.put(*a)
	return nil
}

func (m *mockApptRepo) Save(_ context.Context, a *models.Appointment) error {
	m.put(*a)
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, patientID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.appts[id]; !ok || a.PatientID != patientID {
		return repository.ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
	// collide makes the next Create fail as a duplicate code.
	collide int
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]models.UserProfile)}
}

func (m *mockProfileRepo) ListByPatient(_ context.Context, patientID string) ([]models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserProfile
	for _, p := range m.profiles {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProfileRepo) ListByAccount(_ context.Context, accountID string) ([]models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserProfile
	for _, p := range m.profiles {
		if p.AccountID != nil && *p.AccountID == accountID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProfileRepo) Get(_ context.Context, id string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *mockProfileRepo) GetByCode(_ context.Context, code string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockProfileRepo) Codes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	codes := make([]string, 0, len(m.profiles))
	for _, p := range m.profiles {
		codes = append(codes, p.Code)
	}
	return codes, nil
}

func (m *mockProfileRepo) Create(_ context.Context, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.collide > 0 {
		m.collide--
		return repository.ErrDuplicate
	}
	for _, other := range m.profiles {
		if other.Code == p.Code {
			return repository.ErrDuplicate
		}
	}
	if p.ID == "" {
		p.ID = models.NewID()
	}
	m.profiles[p.ID] = *p
	return nil
}

func (m *mockProfileRepo) Save(_ context.Context, p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = *p
	return nil
}

func (m *mockProfileRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileRepo) SetManager(_ context.Context, patientID, profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.profiles[profileID]
	if !ok || target.PatientID != patientID {
		return repository.ErrNotFound
	}
	for id, p := range m.profiles {
		if p.PatientID == patientID {
			p.IsManager = id == profileID
			m.profiles[id] = p
		}
	}
	return nil
}

func (m *mockProfileRepo) HasAccess(_ context.Context, accountID, patientID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.PatientID == patientID && p.AccountID != nil && *p.AccountID == accountID && p.Status == models.ProfileActive {
			return true, nil
		}
	}
	return false, nil
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]models.User)}
}

func (m *mockUserRepo) Get(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) Create(_ context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	return m.Save(context.Background(), u)
}

func (m *mockUserRepo) Save(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

type mockTokenStore struct {
	mu      sync.Mutex
	tokens  map[string]string
	revoked map[string]bool
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]string), revoked: make(map[string]bool)}
}

func (m *mockTokenStore) StoreRefreshToken(_ context.Context, userID, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *mockTokenStore) RotateRefreshToken(_ context.Context, userID, token, next string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.tokens[token]; !ok || owner != userID || m.revoked[token] {
		return repository.ErrNotFound
	}
	m.revoked[token] = true
	m.tokens[next] = userID
	return nil
}

func (m *mockTokenStore) RevokeRefreshToken(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.tokens[token]
	if !ok || m.revoked[token] {
		return "", repository.ErrNotFound
	}
	m.revoked[token] = true
	return owner, nil
}

type mockInvitationRepo struct {
	mu    sync.Mutex
	byTok map[string]models.Invitation
	users *mockUserRepo
}

func newMockInvitationRepo(users *mockUserRepo) *mockInvitationRepo {
	return &mockInvitationRepo{byTok: make(map[string]models.Invitation), users: users}
}

func (m *mockInvitationRepo) Create(_ context.Context, inv *models.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.ID == "" {
		inv.ID = models.NewID()
	}
	m.byTok[inv.Token] = *inv
	return nil
}

func (m *mockInvitationRepo) GetByToken(_ context.Context, token string) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byTok[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (m *mockInvitationRepo) Accept(ctx context.Context, inv *models.Invitation, account *models.User) error {
	if err := m.users.Create(ctx, account); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTok[inv.Token] = *inv
	return nil
}

// -- Clock --

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
