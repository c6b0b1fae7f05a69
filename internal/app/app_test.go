package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"ignite-call/internal/availability"
)

const testSecret = "test-secret"

// 2026-10-15 is a Thursday.
var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type memRepo struct {
	mu          sync.Mutex
	users       map[string]*User
	intervals   map[string][]availability.TimeInterval
	schedulings []*Scheduling
	tokens      map[string]*oauth2.Token
	failWith    error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     map[string]*User{},
		intervals: map[string][]availability.TimeInterval{},
		tokens:    map[string]*oauth2.Token{},
	}
}

func (m *memRepo) addUser(id, username string) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &User{ID: id, Username: username, Name: "Diego Fernandes", Email: username + "@example.com"}
	m.users[id] = u
	return u
}

func (m *memRepo) Ping(context.Context) error { return m.failWith }

func (m *memRepo) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	u.CreatedAt = testNow
	m.users[u.ID] = u
	return nil
}

func (m *memRepo) UserByUsername(_ context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (m *memRepo) UpdateBio(_ context.Context, userID, bio string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Bio = bio
	return nil
}

func (m *memRepo) LookupUserID(ctx context.Context, username string) (string, error) {
	u, err := m.UserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return "", availability.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

func (m *memRepo) FindTimeInterval(_ context.Context, userID string, weekDay int) (*availability.TimeInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, iv := range m.intervals[userID] {
		if iv.WeekDay == weekDay {
			iv := iv
			return &iv, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListTimeIntervals(_ context.Context, userID string) ([]availability.TimeInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.intervals[userID], nil
}

func (m *memRepo) ReplaceTimeIntervals(_ context.Context, userID string, intervals []availability.TimeInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intervals[userID] = intervals
	return nil
}

func (m *memRepo) ListSchedulingDates(_ context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, s := range m.schedulings {
		if s.UserID == userID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s.Date)
		}
	}
	return out, nil
}

func (m *memRepo) CreateScheduling(_ context.Context, s *Scheduling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.schedulings {
		if existing.UserID == s.UserID && existing.Date.Equal(s.Date) {
			return ErrSlotTaken
		}
	}
	s.CreatedAt = testNow
	m.schedulings = append(m.schedulings, s)
	return nil
}

func (m *memRepo) CalendarToken(_ context.Context, userID string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) PublishScheduling(_ context.Context, _ *oauth2.Token, _ *User, _ *Scheduling) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "evt-1", nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func newTestApp(repo *memRepo) *App {
	return &App{
		Repo:         repo,
		Availability: availability.NewResolver(repo, time.UTC, availability.WithClock(func() time.Time { return testNow })),
		JWTSecret:    testSecret,
		CookieMaxAge: 7 * 24 * time.Hour,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newRouter(a *App) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	a.Routes(r)
	return r
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndReady(t *testing.T) {
	repo := newMemRepo()
	r := newRouter(newTestApp(repo))

	rec := do(t, r, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	repo.failWith = errors.New("connection refused")
	rec = do(t, r, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(newTestApp(newMemRepo()))
	rec := do(t, r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitedRoutes(t *testing.T) {
	a := newTestApp(newMemRepo())
	a.Limiter = denyAll{}
	r := newRouter(a)

	rec := do(t, r, http.MethodPost, "/api/users", map[string]string{"name": "Diego", "username": "diego"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/users/diego/availability?date=2026-10-21", nil, "")
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code, "reads are not throttled")
}

func TestAuthMiddleware(t *testing.T) {
	repo := newMemRepo()
	repo.addUser("u1", "diego")
	r := newRouter(newTestApp(repo))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, "u1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/time-intervals", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthMiddlewareRejectsOtherSecret(t *testing.T) {
	r := newRouter(newTestApp(newMemRepo()))
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"})
	s, err := tok.SignedString([]byte("someone-else"))
	require.NoError(t, err)

	rec := do(t, r, http.MethodGet, "/api/users/time-intervals", nil, s)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token inválido.", decode(t, rec)["message"])
}
