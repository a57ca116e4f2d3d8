package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/domain"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
)

// MockStateTokenStore is an in-memory StateTokenStore for testing.
type MockStateTokenStore struct {
	mu     sync.Mutex
	States map[string]*driven.StateToken

	SaveFn         func(ctx context.Context, state *driven.StateToken) error
	GetAndDeleteFn func(ctx context.Context, token string) (*driven.StateToken, error)
}

func NewMockStateTokenStore() *MockStateTokenStore {
	return &MockStateTokenStore{States: make(map[string]*driven.StateToken)}
}

func (m *MockStateTokenStore) Save(ctx context.Context, state *driven.StateToken) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States[state.Token] = state
	return nil
}

func (m *MockStateTokenStore) GetAndDelete(ctx context.Context, token string) (*driven.StateToken, error) {
	if m.GetAndDeleteFn != nil {
		return m.GetAndDeleteFn(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.States[token]
	if !ok {
		return nil, nil
	}
	delete(m.States, token)
	return s, nil
}

func (m *MockStateTokenStore) Cleanup(ctx context.Context) error { return nil }

// MockSecretStore is an in-memory SecretStore for testing.
type MockSecretStore struct {
	mu      sync.Mutex
	Secrets map[string]*domain.Credential

	StoreFn  func(ctx context.Context, name string, cred *domain.Credential) error
	GetFn    func(ctx context.Context, name string) (*domain.Credential, error)
	DeleteFn func(ctx context.Context, name string) error
}

func NewMockSecretStore() *MockSecretStore {
	return &MockSecretStore{Secrets: make(map[string]*domain.Credential)}
}

func (m *MockSecretStore) Store(ctx context.Context, name string, cred *domain.Credential) error {
	if m.StoreFn != nil {
		return m.StoreFn(ctx, name, cred)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Secrets[name]; ok {
		return domain.ErrAlreadyExists
	}
	m.Secrets[name] = cred
	return nil
}

func (m *MockSecretStore) Get(ctx context.Context, name string) (*domain.Credential, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.Secrets[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cred, nil
}

func (m *MockSecretStore) Update(ctx context.Context, name string, cred *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Secrets[name]; !ok {
		return domain.ErrNotFound
	}
	m.Secrets[name] = cred
	return nil
}

func (m *MockSecretStore) Delete(ctx context.Context, name string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Secrets, name)
	return nil
}

// MockConnectionStore is an in-memory ConnectionStore for testing.
type MockConnectionStore struct {
	mu          sync.Mutex
	Connections map[string]*domain.AgencyConnection
	ClientAuths map[string]*domain.ClientAuthorization

	GetActiveAgencyConnectionFn func(ctx context.Context, agencyID string, group domain.PlatformGroup) (*domain.AgencyConnection, error)
}

func NewMockConnectionStore() *MockConnectionStore {
	return &MockConnectionStore{
		Connections: make(map[string]*domain.AgencyConnection),
		ClientAuths: make(map[string]*domain.ClientAuthorization),
	}
}

func (m *MockConnectionStore) SaveAgencyConnection(ctx context.Context, conn *domain.AgencyConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connections[conn.ID] = conn
	return nil
}

func (m *MockConnectionStore) GetAgencyConnection(ctx context.Context, id string) (*domain.AgencyConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.Connections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conn, nil
}

func (m *MockConnectionStore) GetActiveAgencyConnection(ctx context.Context, agencyID string, group domain.PlatformGroup) (*domain.AgencyConnection, error) {
	if m.GetActiveAgencyConnectionFn != nil {
		return m.GetActiveAgencyConnectionFn(ctx, agencyID, group)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.Connections {
		if conn.AgencyID == agencyID && conn.Group == group && conn.Status == domain.ConnectionActive && conn.Mode == domain.ModeOAuth {
			return conn, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockConnectionStore) UpdateAgencyConnection(ctx context.Context, conn *domain.AgencyConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Connections[conn.ID]; !ok {
		return domain.ErrNotFound
	}
	m.Connections[conn.ID] = conn
	return nil
}

func (m *MockConnectionStore) SaveClientAuthorization(ctx context.Context, auth *domain.ClientAuthorization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClientAuths[auth.ID] = auth
	return nil
}

func (m *MockConnectionStore) ListClientAuthorizations(ctx context.Context, accessRequestID string) ([]*domain.ClientAuthorization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ClientAuthorization
	for _, a := range m.ClientAuths {
		if a.AccessRequestID == accessRequestID {
			out = append(out, a)
		}
	}
	return out, nil
}

// MockVerificationStore is an in-memory VerificationStore for testing.
// Upsert mirrors the relational unique-constraint-plus-upsert semantics.
type MockVerificationStore struct {
	mu      sync.Mutex
	Records map[string]*domain.VerificationRecord // keyed by request:platform

	UpsertFn func(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error)
	UpdateFn func(ctx context.Context, rec *domain.VerificationRecord) error
}

func NewMockVerificationStore() *MockVerificationStore {
	return &MockVerificationStore{Records: make(map[string]*domain.VerificationRecord)}
}

func verificationKey(requestID string, platform domain.PlatformID) string {
	return requestID + ":" + string(platform)
}

func (m *MockVerificationStore) Upsert(ctx context.Context, rec *domain.VerificationRecord) (*domain.VerificationRecord, error) {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := verificationKey(rec.AccessRequestID, rec.Platform)
	if existing, ok := m.Records[key]; ok {
		existing.Status = domain.VerificationPending
		existing.Attempts++
		existing.LastAttemptAt = rec.LastAttemptAt
		existing.AgencyConnectionID = rec.AgencyConnectionID
		existing.ClientEmail = rec.ClientEmail
		existing.RequiredAccessLevel = rec.RequiredAccessLevel
		existing.ErrorMessage = ""
		return existing, nil
	}
	rec.Attempts = 1
	m.Records[key] = rec
	return rec, nil
}

func (m *MockVerificationStore) Get(ctx context.Context, id string) (*domain.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockVerificationStore) GetByRequestPlatform(ctx context.Context, accessRequestID string, platform domain.PlatformID) (*domain.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Records[verificationKey(accessRequestID, platform)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *MockVerificationStore) ListByRequest(ctx context.Context, accessRequestID string) ([]*domain.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.VerificationRecord
	for _, r := range m.Records {
		if r.AccessRequestID == accessRequestID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockVerificationStore) Update(ctx context.Context, rec *domain.VerificationRecord) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := verificationKey(rec.AccessRequestID, rec.Platform)
	if _, ok := m.Records[key]; !ok {
		return domain.ErrNotFound
	}
	m.Records[key] = rec
	return nil
}

// MockAccessRequestStore is an in-memory AccessRequestStore for testing.
type MockAccessRequestStore struct {
	mu       sync.Mutex
	Requests map[string]*domain.AccessRequest
	Statuses []domain.RequestStatus // recorded UpdateStatus calls, in order
}

func NewMockAccessRequestStore() *MockAccessRequestStore {
	return &MockAccessRequestStore{Requests: make(map[string]*domain.AccessRequest)}
}

func (m *MockAccessRequestStore) Save(ctx context.Context, req *domain.AccessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests[req.ID] = req
	return nil
}

func (m *MockAccessRequestStore) Get(ctx context.Context, id string) (*domain.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.Requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return req, nil
}

func (m *MockAccessRequestStore) GetByToken(ctx context.Context, token string) (*domain.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.Requests {
		if req.Token == token {
			return req, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccessRequestStore) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.Requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	req.Status = status
	m.Statuses = append(m.Statuses, status)
	return nil
}

// MockUserStore is an in-memory UserStore for testing.
type MockUserStore struct {
	mu    sync.Mutex
	Users map[string]*domain.User
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{Users: make(map[string]*domain.User)}
}

func (m *MockUserStore) Save(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.Users {
		if id != user.ID && existing.Email == user.Email {
			return domain.ErrAlreadyExists
		}
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserStore) List(ctx context.Context, agencyID string) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []*domain.User
	for _, user := range m.Users {
		if user.AgencyID == agencyID {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.Users, id)
	return nil
}

func (m *MockUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}
