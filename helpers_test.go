package authcore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/jwt"
)

const (
	testPassword = "correct-Horse-9!"
	testEmail    = "alice@example.com"
	testMobile   = "+15551234567"
)

type testEnv struct {
	engine *Engine
	repo   *mockUserRepository
	email  *mockEmailSender
	sms    *mockSMSSender
	redis  *miniredis.Miniredis
	rdb    redis.UniversalClient
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	cfg := Config{
		JWT: jwt.Config{
			SigningMethod: jwt.MethodEd25519,
			PrivateKey:    priv,
		},
		// low cost keeps the suite fast
		Password: PasswordConfig{Cost: 4},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	repo := newMockUserRepository()
	email := &mockEmailSender{}
	sms := &mockSMSSender{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUsers(repo).
		WithEmailSender(email).
		WithSMSSender(sms).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("engine build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, repo: repo, email: email, sms: sms, redis: mr, rdb: rdb}
}

// signup registers the default test user and waits for the verification
// email to land on the mock sender.
func (env *testEnv) signup(t *testing.T) *AuthResult {
	t.Helper()
	auth, err := env.engine.Signup(context.Background(), SignupRequest{
		Email:    testEmail,
		Password: testPassword,
		Mobile:   testMobile,
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	env.email.wait(t, 1)
	return auth
}

func (env *testEnv) user(t *testing.T, email string) *User {
	t.Helper()
	user, err := env.repo.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("find %s: %v", email, err)
	}
	return user
}

func loginCtx(ip, deviceID string) context.Context {
	ctx := WithClientIP(context.Background(), ip)
	if deviceID != "" {
		ctx = WithDeviceID(ctx, deviceID)
	}
	return ctx
}

// mockUserRepository is an in-memory UserRepository. A single mutex stands
// in for serializable isolation.
type mockUserRepository struct {
	mu      sync.Mutex
	byID    map[string]User
	byEmail map[string]string

	failAll   bool
	updateErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return nil, errTestStoreDown
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserDoesNotExist
	}
	return &u, nil
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return nil, errTestStoreDown
	}
	return m.findByEmailLocked(email)
}

func (m *mockUserRepository) findByEmailLocked(email string) (*User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserDoesNotExist
	}
	u := m.byID[id]
	return &u, nil
}

func (m *mockUserRepository) Update(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return errTestStoreDown
	}
	if m.updateErr != nil {
		return m.updateErr
	}
	old, ok := m.byID[user.ID]
	if !ok {
		return ErrUserDoesNotExist
	}
	if old.Email != user.Email {
		delete(m.byEmail, old.Email)
		m.byEmail[user.Email] = user.ID
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *mockUserRepository) List(_ context.Context, q ListUsersQuery) (*UserPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]User, 0, len(m.byID))
	for _, u := range m.byID {
		if q.Search != "" && !strings.Contains(u.Email, strings.ToLower(q.Search)) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		var less bool
		switch q.OrderBy {
		case "email":
			less = users[i].Email < users[j].Email
		default:
			less = users[i].Created.Before(users[j].Created)
		}
		if q.Descending {
			return !less
		}
		return less
	})

	page := &UserPage{Total: len(users), Users: []Profile{}}
	for i := q.Offset; i < len(users) && len(page.Users) < q.Limit; i++ {
		page.Users = append(page.Users, users[i].Profile())
	}
	return page, nil
}

func (m *mockUserRepository) CreateSerializable(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return errTestStoreDown
	}
	return fn(ctx, (*mockUserTx)(m))
}

type mockUserTx mockUserRepository

func (t *mockUserTx) FindByEmail(_ context.Context, email string) (*User, error) {
	return (*mockUserRepository)(t).findByEmailLocked(email)
}

func (t *mockUserTx) Insert(_ context.Context, user *User) error {
	if _, ok := t.byEmail[user.Email]; ok {
		return ErrUserAlreadyExists
	}
	t.byID[user.ID] = *user
	t.byEmail[user.Email] = user.ID
	return nil
}

var errTestStoreDown = errorString("store down")

type errorString string

func (e errorString) Error() string { return string(e) }

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type mockEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (m *mockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// wait blocks until n messages have been delivered; the notifier runs on
// its own goroutine.
func (m *mockEmailSender) wait(t *testing.T, n int) []sentEmail {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		if len(m.sent) >= n {
			out := make([]sentEmail, len(m.sent))
			copy(out, m.sent)
			m.mu.Unlock()
			return out
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d emails", n)
	return nil
}

type sentSMS struct {
	To   string
	Body string
}

type mockSMSSender struct {
	mu   sync.Mutex
	sent []sentSMS
}

func (m *mockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentSMS{To: to, Body: body})
	return nil
}

func (m *mockSMSSender) sentCopy() []sentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentSMS, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *mockSMSSender) wait(t *testing.T, n int) []sentSMS {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		if len(m.sent) >= n {
			out := make([]sentSMS, len(m.sent))
			copy(out, m.sent)
			m.mu.Unlock()
			return out
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sms", n)
	return nil
}

// codeFromSMS digs the numeric code out of the message body.
func codeFromSMS(t *testing.T, body string) string {
	t.Helper()
	fields := strings.Fields(body)
	code := fields[len(fields)-1]
	if len(code) != 6 {
		t.Fatalf("no 6-digit code in %q", body)
	}
	return code
}

// tokenFromEmail digs the verification token out of the message body.
func tokenFromEmail(t *testing.T, body string) string {
	t.Helper()
	fields := strings.Fields(body)
	return fields[len(fields)-1]
}
