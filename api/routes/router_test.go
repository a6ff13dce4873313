package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/logbook-backend/internal/attendance"
	"github.com/angelmondragon/logbook-backend/internal/auth"
	"github.com/angelmondragon/logbook-backend/internal/authz"
	"github.com/angelmondragon/logbook-backend/internal/users"
	"github.com/angelmondragon/logbook-backend/pkg/auth/session"
	"github.com/angelmondragon/logbook-backend/pkg/config"
	"github.com/angelmondragon/logbook-backend/pkg/db"
	"github.com/angelmondragon/logbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/logbook-backend/pkg/enums"
	"github.com/angelmondragon/logbook-backend/pkg/metrics"
	"github.com/angelmondragon/logbook-backend/pkg/security"
)

const (
	officeLat = -6.2088
	officeLon = 106.8456
	password  = "Sup3r-secret!"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memorySessions keeps access sessions in a map in place of redis.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

type memorySession struct {
	userID  uuid.UUID
	refresh string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]memorySession{}}
}

func (m *memorySessions) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refresh := uuid.NewString()
	m.sessions[accessID] = memorySession{userID: userID, refresh: refresh}
	return refresh, nil
}

func (m *memorySessions) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[oldAccessID]
	if !ok || current.refresh != provided || current.userID != userID {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.sessions, oldAccessID)
	next := session.NewAccessID()
	refresh := uuid.NewString()
	m.sessions[next] = memorySession{userID: userID, refresh: refresh}
	return next, refresh, nil
}

func (m *memorySessions) Revoke(ctx context.Context, accessID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accessID)
	return nil
}

func (m *memorySessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[accessID]
	return ok, nil
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type routerFixture struct {
	handler http.Handler
	users   *users.Repository
	clock   *clock
}

func newRouterFixture(t *testing.T, dbPing error) routerFixture {
	t.Helper()

	gdb := dbtest.Open(t)
	userRepo := users.NewRepository(gdb)
	sessions := newMemorySessions()
	jwtCfg := config.JWTConfig{Secret: "secret", Issuer: "logbook", ExpirationMinutes: 60, RefreshTokenTTLMinutes: 1440}
	attendanceClock := &clock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}

	cfg := &config.Config{
		App:        config.AppConfig{Env: "test"},
		JWT:        jwtCfg,
		Attendance: config.AttendanceConfig{OfficeLat: officeLat, OfficeLon: officeLon, OfficeRadiusMeters: 400, RemoteRadiusMeters: 50000, LateCutoff: "09:10", TimeZone: "UTC"},
	}

	office, remote, err := attendance.PoliciesFromConfig(cfg.Attendance)
	require.NoError(t, err)

	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo, SessionManager: sessions, JWTConfig: jwtCfg})
	require.NoError(t, err)
	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: db.FromGorm(gdb)})
	require.NoError(t, err)
	verifier, err := auth.NewVerifier(jwtCfg, sessions)
	require.NoError(t, err)
	resolver, err := authz.NewResolver(userRepo)
	require.NoError(t, err)
	adminSvc, err := users.NewAdminService(users.AdminServiceParams{Repo: userRepo})
	require.NoError(t, err)

	records := attendance.NewRepository(gdb)
	attendanceSvc, err := attendance.NewService(attendance.ServiceParams{Repo: records, Office: office, Remote: remote, Clock: attendanceClock.Now})
	require.NoError(t, err)
	divisionSvc, err := attendance.NewDivisionService(attendance.DivisionServiceParams{Records: records, Users: userRepo, Policy: office, Clock: attendanceClock.Now})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	handler := NewRouter(Deps{
		Config:     cfg,
		DB:         stubPinger{err: dbPing},
		Redis:      stubPinger{},
		Gatherer:   reg,
		Metrics:    metrics.NewHTTPMetrics(reg),
		Verifier:   verifier,
		Resolver:   resolver,
		Auth:       authSvc,
		Register:   registerSvc,
		Admin:      adminSvc,
		Attendance: attendanceSvc,
		Divisions:  divisionSvc,
	})

	return routerFixture{handler: handler, users: userRepo, clock: attendanceClock}
}

func (f routerFixture) createUser(t *testing.T, email string, role enums.Role, status enums.UserStatus) uuid.UUID {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user, err := f.users.Create(context.Background(), users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test User",
		Role:         role,
		Status:       status,
	})
	require.NoError(t, err)
	return user.ID
}

func (f routerFixture) login(t *testing.T, email string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data auth.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func (f routerFixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.handler.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

func TestAttendanceDayOverHTTP(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.createUser(t, "ana@example.com", enums.RoleUser, enums.UserStatusApproved)
	token := f.login(t, "ana@example.com")

	checkIn := map[string]any{"latitude": officeLat, "longitude": officeLon}
	resp := f.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkIn)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var opened attendance.Record
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &opened))
	require.Equal(t, attendance.StateOpenSession, opened.State)
	require.False(t, opened.IsLate)

	resp = f.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, checkIn)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, string(attendance.ReasonAlreadyCheckedIn), decode(t, resp).Error.Reason)

	f.clock.Set(time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC))
	resp = f.do(t, http.MethodPost, "/api/v1/attendance/check-out", token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var closed attendance.Record
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &closed))
	require.Equal(t, attendance.StateClosed, closed.State)
	require.NotNil(t, closed.CheckOutAt)

	resp = f.do(t, http.MethodGet, "/api/v1/attendance/today", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var today attendance.DaySummary
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &today))
	require.Equal(t, attendance.StateClosed, today.State)
	require.Len(t, today.Records, 1)
}

func TestCheckInRejectionsCarryReasons(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.createUser(t, "ana@example.com", enums.RoleUser, enums.UserStatusApproved)
	token := f.login(t, "ana@example.com")

	resp := f.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, map[string]any{"latitude": officeLat})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "MISSING_FIELD", decode(t, resp).Error.Reason)

	resp = f.do(t, http.MethodPost, "/api/v1/attendance/check-in", token, map[string]any{"latitude": officeLat + 0.1, "longitude": officeLon})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, string(attendance.ReasonOutsideGeofence), decode(t, resp).Error.Reason)

	resp = f.do(t, http.MethodPost, "/api/v1/attendance/check-out", token, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, string(attendance.ReasonNoOpenSession), decode(t, resp).Error.Reason)
}

func TestMissingAndInvalidCredentialsAreDistinct(t *testing.T) {
	f := newRouterFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/api/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "UNAUTHORIZED", decode(t, resp).Error.Code)

	resp = f.do(t, http.MethodGet, "/api/v1/me", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "INVALID_TOKEN", decode(t, resp).Error.Code)
}

func TestRoleChangesApplyOnNextRequest(t *testing.T) {
	f := newRouterFixture(t, nil)
	id := f.createUser(t, "ana@example.com", enums.RoleUser, enums.UserStatusApproved)
	token := f.login(t, "ana@example.com")

	resp := f.do(t, http.MethodGet, "/api/v1/admin/users/", token, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	require.NoError(t, f.users.UpdateRoles(context.Background(), id, users.RoleUpdate{Role: enums.RoleAdmin}))

	resp = f.do(t, http.MethodGet, "/api/v1/admin/users/", token, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.NoError(t, f.users.UpdateStatus(context.Background(), id, enums.UserStatusSuspended))
	resp = f.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMeReturnsEffectiveCapabilities(t *testing.T) {
	f := newRouterFixture(t, nil)
	id := f.createUser(t, "ana@example.com", enums.RoleUser, enums.UserStatusApproved)
	require.NoError(t, f.users.UpdateRoles(context.Background(), id, users.RoleUpdate{
		Role:  enums.RoleUser,
		Roles: []string{"approver"},
		Flags: users.CapabilityFlags{IsBillingCoordinator: true},
	}))
	token := f.login(t, "ana@example.com")

	resp := f.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var me struct {
		Capabilities []string `json:"capabilities"`
		IsAdmin      bool     `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &me))
	require.ElementsMatch(t, []string{"user", "approver", "billing_coordinator"}, me.Capabilities)
	require.False(t, me.IsAdmin)
}

func TestRegisterThenLoginIsRejectedUntilApproved(t *testing.T) {
	f := newRouterFixture(t, nil)
	adminID := f.createUser(t, "boss@example.com", enums.RoleAdmin, enums.UserStatusApproved)
	require.NotEqual(t, uuid.Nil, adminID)

	resp := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":     "new@example.com",
		"password":  password,
		"full_name": "New Hire",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created users.UserDTO
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))
	require.Equal(t, enums.UserStatusPending, created.Status)

	resp = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "new@example.com", "password": password})
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	adminToken := f.login(t, "boss@example.com")
	resp = f.do(t, http.MethodPost, "/api/v1/admin/users/"+created.ID.String()+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	f.login(t, "new@example.com")
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.createUser(t, "ana@example.com", enums.RoleUser, enums.UserStatusApproved)
	token := f.login(t, "ana@example.com")

	resp := f.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, "INVALID_TOKEN", decode(t, resp).Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = f.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "logbook_http_requests_total")
}

func TestReadinessFailsWhenDatabaseIsDown(t *testing.T) {
	f := newRouterFixture(t, errors.New("connection refused"))

	resp := f.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Equal(t, "DEPENDENCY_ERROR", decode(t, resp).Error.Code)
}
