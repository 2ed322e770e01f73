package paedu_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/alfredpaedu/paedu"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig implements paedu.Config for wiring codecs and authenticators.
type testConfig struct {
	signingKey      string
	tokenTTL        int
	confirmationTTL int
	issuer          string
	audience        []string
	adminEmail      string
}

func (c testConfig) GetSigningKey() string { return c.signingKey }

func (c testConfig) GetSigningMethod() string { return "HS256" }

func (c testConfig) GetContextKey() string { return "caller" }

func (c testConfig) GetTokenTTL() int { return c.tokenTTL }

func (c testConfig) GetConfirmationTTL() int { return c.confirmationTTL }

func (c testConfig) GetTokenLookup() string { return "header:Authorization" }

func (c testConfig) GetAuthScheme() string { return "Bearer" }

func (c testConfig) GetIssuer() string { return c.issuer }

func (c testConfig) GetAudience() []string { return c.audience }

func (c testConfig) GetAdminEmail() string { return c.adminEmail }

func newTestConfig() testConfig {
	return testConfig{
		signingKey:      "test-signing-key",
		tokenTTL:        3600,
		confirmationTTL: 7200,
		issuer:          "paedu-test",
		audience:        []string{"paedu"},
		adminEmail:      "head@school.example",
	}
}

// MockActivitySink implements paedu.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event paedu.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockAccountTracker implements paedu.AccountTracker
type MockAccountTracker struct {
	mock.Mock
}

func (m *MockAccountTracker) GetByIdentifier(ctx context.Context, identifier string) (*paedu.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockAccountTracker) TrackAttemptedLogin(ctx context.Context, user *paedu.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockAccountTracker) TrackSucccessfulLogin(ctx context.Context, user *paedu.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockVerifier implements paedu.CredentialVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyCredentials(ctx context.Context, identifier, password string) (paedu.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(paedu.Identity)
	return identity, args.Error(1)
}

func (m *MockVerifier) FindIdentityByIdentifier(ctx context.Context, identifier string) (paedu.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(paedu.Identity)
	return identity, args.Error(1)
}

// MockUsers mocks the account repository. Only the methods the lifecycle
// handlers touch are overridden, the rest panic through the embedded
// interface if reached.
type MockUsers struct {
	paedu.Users
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*paedu.User, error) {
	args := m.Called(ctx, id, criteria)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*paedu.User, error) {
	args := m.Called(ctx, tx, id, criteria)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*paedu.User, error) {
	args := m.Called(ctx, identifier, criteria)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*paedu.User, error) {
	args := m.Called(ctx, tx, identifier, criteria)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *paedu.User, criteria ...repository.InsertCriteria) (*paedu.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *paedu.User, criteria ...repository.UpdateCriteria) (*paedu.User, error) {
	args := m.Called(ctx, tx, record, criteria)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

func (m *MockUsers) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUsers) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*paedu.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*paedu.User)
	return user, args.Error(1)
}

// MockTags mocks the tag repository.
type MockTags struct {
	paedu.Tags
	mock.Mock
}

func (m *MockTags) GetOrCreateTx(ctx context.Context, tx bun.IDB, text string) (*paedu.Tag, error) {
	args := m.Called(ctx, tx, text)
	tag, _ := args.Get(0).(*paedu.Tag)
	return tag, args.Error(1)
}

// MockPosts mocks the wall post repository.
type MockPosts struct {
	paedu.Posts
	mock.Mock
}

func (m *MockPosts) List(ctx context.Context, limit, offset int) ([]*paedu.Post, int, error) {
	args := m.Called(ctx, limit, offset)
	records, _ := args.Get(0).([]*paedu.Post)
	return records, args.Int(1), args.Error(2)
}

func (m *MockPosts) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*paedu.Post, int, error) {
	args := m.Called(ctx, authorID, limit, offset)
	records, _ := args.Get(0).([]*paedu.Post)
	return records, args.Int(1), args.Error(2)
}

// MockSuggestions mocks the suggestion repository.
type MockSuggestions struct {
	paedu.Suggestions
	mock.Mock
}

func (m *MockSuggestions) FindByQuery(ctx context.Context, query string) ([]*paedu.Suggestion, error) {
	args := m.Called(ctx, query)
	records, _ := args.Get(0).([]*paedu.Suggestion)
	return records, args.Error(1)
}

// MockRepositoryManager mocks the repository manager.
type MockRepositoryManager struct {
	paedu.RepositoryManager
	mock.Mock
}

func (m *MockRepositoryManager) Users() paedu.Users {
	args := m.Called()
	return args.Get(0).(paedu.Users)
}

func (m *MockRepositoryManager) Tags() paedu.Tags {
	args := m.Called()
	return args.Get(0).(paedu.Tags)
}

func (m *MockRepositoryManager) Posts() paedu.Posts {
	args := m.Called()
	return args.Get(0).(paedu.Posts)
}

func (m *MockRepositoryManager) Suggestions() paedu.Suggestions {
	args := m.Called()
	return args.Get(0).(paedu.Suggestions)
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func testUser(perms paedu.Permission) *paedu.User {
	now := time.Now()
	return &paedu.User{
		ID:          uuid.New(),
		Email:       "pepe.rone@example.com",
		Username:    "pepe.rone",
		Confirmed:   true,
		Permissions: perms,
		CreatedAt:   &now,
	}
}
