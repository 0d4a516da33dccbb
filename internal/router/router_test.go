package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/bp-admin-api/config"
	authhandler "github.com/jwalitptl/bp-admin-api/internal/handler/auth"
	commhandler "github.com/jwalitptl/bp-admin-api/internal/handler/communication"
	"github.com/jwalitptl/bp-admin-api/internal/handler/dashboard"
	"github.com/jwalitptl/bp-admin-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/bp-admin-api/internal/handler/patient"
	readinghandler "github.com/jwalitptl/bp-admin-api/internal/handler/reading"
	taskhandler "github.com/jwalitptl/bp-admin-api/internal/handler/task"
	userhandler "github.com/jwalitptl/bp-admin-api/internal/handler/user"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/repotest"
	"github.com/jwalitptl/bp-admin-api/internal/service/analytics"
	authsvc "github.com/jwalitptl/bp-admin-api/internal/service/auth"
	"github.com/jwalitptl/bp-admin-api/internal/service/communication"
	"github.com/jwalitptl/bp-admin-api/internal/service/event"
	"github.com/jwalitptl/bp-admin-api/internal/service/patient"
	"github.com/jwalitptl/bp-admin-api/internal/service/reading"
	"github.com/jwalitptl/bp-admin-api/internal/service/task"
	"github.com/jwalitptl/bp-admin-api/internal/service/user"
	"github.com/jwalitptl/bp-admin-api/pkg/auth"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
	"github.com/jwalitptl/bp-admin-api/pkg/security"
	"github.com/jwalitptl/bp-admin-api/pkg/validator"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int               `json:"code"`
		Reason  string            `json:"reason"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type page struct {
	Results    json.RawMessage `json:"results"`
	Pagination struct {
		Page     int `json:"page"`
		PageSize int `json:"page_size"`
		Total    int `json:"total"`
	} `json:"pagination"`
}

type testServer struct {
	engine *gin.Engine
	store  *repotest.Store
	pinger *fakePinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Register()

	store := repotest.NewStore()
	logger := zerolog.Nop()
	m := metrics.New("test")
	reg := prometheus.NewRegistry()
	m.MustRegister(reg)

	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "router-test", Issuer: "test", Expiry: time.Hour})
	require.NoError(t, err)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	users := repotest.UserRepository{Store: store}
	patients := repotest.PatientRepository{Store: store}
	readings := repotest.ReadingRepository{Store: store}
	tasks := repotest.TaskRepository{Store: store}
	comms := repotest.CommunicationRepository{Store: store}
	events := event.NewEventService(repotest.OutboxRepository{Store: store}, logger)

	userSvc := user.NewService(users, hasher)
	analyticsSvc := analytics.NewService(comms, repotest.StatsRepository{Store: store})
	pinger := &fakePinger{}

	r := NewRouter(
		RouterConfig{
			CORS: config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}},
		},
		logger,
		m,
		middleware.NewAuthMiddleware(jwtSvc),
		health.NewHandler(pinger, reg),
		authhandler.NewHandler(authsvc.NewService(users, jwtSvc, hasher, logger)),
		userhandler.NewHandler(userSvc),
		patienthandler.NewHandler(patient.NewService(patients, readings, events)),
		readinghandler.NewHandler(reading.NewService(readings, patients, users, tasks, comms, events,
			reading.Config{AutoFollowUp: true, RecentContact: 14 * 24 * time.Hour}, m, logger)),
		taskhandler.NewHandler(task.NewService(tasks, events)),
		commhandler.NewHandler(communication.NewService(comms), analyticsSvc),
		dashboard.NewHandler(analyticsSvc),
	)
	r.Setup()

	for _, req := range []*model.CreateUserRequest{
		{Username: "admin", Name: "Admin", Password: "admin-pass", Role: model.RoleAdmin},
		{Username: "ff", Name: "Firefighter", Password: "ff-pass-1", Role: model.RoleFirefighter},
		{Username: "nurse", Name: "Nurse Kim", Password: "nurse-pass", Role: model.RoleNurse},
	} {
		_, err := userSvc.CreateUser(context.Background(), req)
		require.NoError(t, err)
	}

	return &testServer{engine: r.Engine(), store: store, pinger: pinger}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, APIVersion, w.Header().Get("X-API-Version"))

	w, _ = s.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.pinger.err = fmt.Errorf("connection refused")
	w, _ = s.do(t, http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/health/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/v1/patients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Error.Reason)
	assert.Equal(t, "invalid credentials", env.Error.Message)

	token := s.login(t, "admin", "admin-pass")
	w, env = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.User
	decodeData(t, env, &me)
	assert.Equal(t, "admin", me.Username)
	assert.NotContains(t, string(env.Data), "password")

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserWritesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	body := gin.H{"username": "coach", "name": "Coach Lee", "password": "coach-pass", "role": "coach"}

	w, env := s.do(t, http.MethodPost, "/api/v1/users", s.login(t, "ff", "ff-pass-1"), body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Reason)

	admin := s.login(t, "admin", "admin-pass")
	w, _ = s.do(t, http.MethodPost, "/api/v1/users", admin, body)
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/users", admin, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", env.Error.Reason)

	w, env = s.do(t, http.MethodGet, "/api/v1/users?role=coach", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p page
	decodeData(t, env, &p)
	assert.Equal(t, 1, p.Pagination.Total)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "admin", "admin-pass")

	w, env := s.do(t, http.MethodPost, "/api/v1/readings", token, gin.H{"patient": 1, "diastolic": 80})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", env.Error.Reason)
	assert.Contains(t, env.Error.Details, "systolic")

	w, env = s.do(t, http.MethodGet, "/api/v1/patients/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Details, "id")

	w, env = s.do(t, http.MethodPost, "/api/v1/readings", token, gin.H{"patient": 999, "systolic": 120, "diastolic": 80})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Reason)

	w, _ = s.do(t, http.MethodGet, "/api/v1/nothing-here", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadingWorkflow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "ff", "ff-pass-1")

	patientBody := gin.H{
		"employee_id": "FD-100", "first_name": "Jane", "last_name": "Doe",
		"department": "Station 1", "union": "Local 42", "age": 45,
	}
	w, env := s.do(t, http.MethodPost, "/api/v1/patients", token, patientBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p model.Patient
	decodeData(t, env, &p)
	assert.Equal(t, "Jane Doe", p.FullName)

	w, env = s.do(t, http.MethodPost, "/api/v1/patients", token, patientBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, env.Error.Details, "employee_id")

	// category and is_abnormal in the body are ignored
	w, env = s.do(t, http.MethodPost, "/api/v1/readings", token, gin.H{
		"patient": p.ID, "systolic": 185, "diastolic": 125, "category": "normal", "is_abnormal": false,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r model.BpReading
	decodeData(t, env, &r)
	assert.Equal(t, "crisis", string(r.Category))
	assert.True(t, r.IsAbnormal)
	assert.Equal(t, "Firefighter", r.RecordedByName)

	// the crisis reading opened an urgent call for the nurse
	w, env = s.do(t, http.MethodGet, "/api/v1/workflow?priority=urgent", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pg page
	decodeData(t, env, &pg)
	var tasks []model.WorkflowTask
	require.NoError(t, json.Unmarshal(pg.Results, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Nurse Kim", tasks[0].AssigneeName)
	assert.Equal(t, "URGENT: Call Jane Doe for critical BP reading", tasks[0].Title)

	w, env = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/workflow/%d", tasks[0].ID), token, gin.H{
		"status": "completed", "completed_at": "2000-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var done model.WorkflowTask
	decodeData(t, env, &done)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.After(time.Now().Add(-time.Minute)))

	w, env = s.do(t, http.MethodGet, "/api/v1/patients/priority", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var priority []model.Patient
	decodeData(t, env, &priority)
	require.Len(t, priority, 1)
	require.NotNil(t, priority[0].LatestReading)
	assert.Equal(t, r.ID, priority[0].LatestReading.ID)

	w, env = s.do(t, http.MethodGet, "/api/v1/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.DashboardStats
	decodeData(t, env, &stats)
	assert.Equal(t, model.DashboardStats{TotalPatients: 1, AbnormalReadings: 1, PendingCalls: 0, TodayReadings: 1}, stats)

	w, _ = s.do(t, http.MethodGet, "/api/v1/readings/export?abnormal=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	assert.Len(t, s.store.EventsOfType(model.EventReadingAbnormal), 1)
	assert.Len(t, s.store.EventsOfType(model.EventTaskCompleted), 1)
}

func TestCommunicationEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "nurse", "nurse-pass")

	w, env := s.do(t, http.MethodPost, "/api/v1/patients", token, gin.H{
		"employee_id": "FD-200", "first_name": "Sam", "last_name": "Ortiz",
		"department": "Station 2", "union": "Local 42", "age": 39,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p model.Patient
	decodeData(t, env, &p)

	followUp := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	w, env = s.do(t, http.MethodPost, "/api/v1/communications", token, gin.H{
		"patient": p.ID, "message": "no pickup", "outcome": "no_answer", "follow_up_date": followUp,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var log model.CommunicationLog
	decodeData(t, env, &log)
	assert.Equal(t, model.CommunicationCall, log.Type)
	assert.Equal(t, "Nurse Kim", log.UserDetails.Name)

	w, env = s.do(t, http.MethodGet, "/api/v1/communications/follow-up-queue", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []model.CommunicationLog
	decodeData(t, env, &queue)
	assert.Len(t, queue, 1)

	w, _ = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/communications/%d/resolve", log.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.do(t, http.MethodGet, "/api/v1/communications/follow-up-queue", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	queue = nil
	decodeData(t, env, &queue)
	assert.Empty(t, queue)

	w, env = s.do(t, http.MethodGet, "/api/v1/communications/analytics?period=7d", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report model.CommunicationAnalytics
	decodeData(t, env, &report)
	assert.Equal(t, "7d", report.Period)
	assert.Equal(t, 1, report.TotalCommunications)
	assert.Equal(t, map[string]int{"resolved": 1}, report.ByOutcome)
	assert.Equal(t, 100, report.ResponseRate)

	w, _ = s.do(t, http.MethodGet, "/api/v1/communications?sort_by=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
