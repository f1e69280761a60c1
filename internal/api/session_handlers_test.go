package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/api"
	"github.com/macfarley/dream-weaver-backend/internal/auth"
	"github.com/macfarley/dream-weaver-backend/internal/service"
	"github.com/macfarley/dream-weaver-backend/internal/storage"
)

type testApp struct {
	logger   internal.Logger
	users    *service.UserService
	bedrooms *service.BedroomService
	sessions *service.SessionService
}

func (a *testApp) Logger() internal.Logger           { return a.logger }
func (a *testApp) Users() *service.UserService       { return a.users }
func (a *testApp) Bedrooms() *service.BedroomService { return a.bedrooms }
func (a *testApp) Sessions() *service.SessionService { return a.sessions }

// setupServer wires a full router over file storage in a temp dir, registers
// a user and returns the router plus a bearer token for that user.
func setupServer(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	logger := internal.NewNopLogger()
	repos, err := storage.NewFileRepositories(
		filepath.Join(dir, "users.json"),
		filepath.Join(dir, "bedrooms.json"),
		filepath.Join(dir, "sessions.json"),
		logger,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	provider := auth.NewJWTProvider("test-secret", time.Hour, logger)
	app := &testApp{
		logger:   logger,
		users:    service.NewUserService(repos.Users, provider, logger),
		bedrooms: service.NewBedroomService(repos.Bedrooms, repos.Sessions, logger),
		sessions: service.NewSessionService(repos.Sessions, repos.Bedrooms, logger),
	}
	router := api.NewRouter(app, provider, nil)

	rec := doJSON(t, router, "POST", "/auth/register", "", `{"username":"dreamer","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Meta struct {
			Token string `json:"token"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Meta.Token)

	return router, body.Meta.Token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createBedroom(t *testing.T, router *gin.Engine, token string) string {
	t.Helper()
	rec := doJSON(t, router, "POST", "/bedrooms", token,
		`{"name":"Main bedroom","bed_type":"queen","temperature":68,"light_level":"dark","noise_level":"quiet"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Data internal.Bedroom `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data.ID
}

func TestSessionFlow(t *testing.T) {
	router, token := setupServer(t)
	bedroomID := createBedroom(t, router, token)

	// Begin a session.
	rec := doJSON(t, router, "POST", "/sleepsessions", token, `{"bedroom_id":"`+bedroomID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data internal.SleepSession `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Empty(t, created.Data.WakeUps)

	// A second begin conflicts, and the payload references the first session.
	rec = doJSON(t, router, "POST", "/sleepsessions", token, `{"bedroom_id":"`+bedroomID+`"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Error struct {
			Kind    string `json:"kind"`
			Details struct {
				ID string `json:"id"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, "conflict", conflict.Error.Kind)
	assert.Equal(t, created.Data.ID, conflict.Error.Details.ID)

	// Record an unfinished wake-up; session stays active.
	rec = doJSON(t, router, "POST", "/sleepsessions/wakeup", token, `{"sleep_quality":7,"finished_sleeping":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var wake struct {
		Meta struct {
			WakeUpCount   int  `json:"wake_up_count"`
			SessionClosed bool `json:"session_closed"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wake))
	assert.Equal(t, 1, wake.Meta.WakeUpCount)
	assert.False(t, wake.Meta.SessionClosed)

	rec = doJSON(t, router, "GET", "/sleepsessions/active", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Data service.ActiveSessionStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Data.Active)
	require.NotNil(t, status.Data.Session)
	assert.Equal(t, created.Data.ID, status.Data.Session.ID)

	// A finishing wake-up closes the session for good.
	rec = doJSON(t, router, "POST", "/sleepsessions/wakeup", token, `{"sleep_quality":9,"finished_sleeping":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wake))
	assert.True(t, wake.Meta.SessionClosed)

	rec = doJSON(t, router, "POST", "/sleepsessions/wakeup", token, `{"sleep_quality":5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, "GET", "/sleepsessions/active", token, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Data.Active)

	// Closed sessions remain queryable history.
	rec = doJSON(t, router, "GET", "/sleepsessions", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []internal.SleepSession `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Len(t, list.Data[0].WakeUps, 2)
}

func TestWakeUpValidation(t *testing.T) {
	router, token := setupServer(t)
	bedroomID := createBedroom(t, router, token)
	rec := doJSON(t, router, "POST", "/sleepsessions", token, `{"bedroom_id":"`+bedroomID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cases := []string{
		`{"sleep_quality":0}`,
		`{"sleep_quality":11}`,
		`{"sleep_quality":-1}`,
		`{}`,
		`{"sleep_quality":"seven"}`,
		`{"sleep_quality":8,"awaken_at":"yesterday-ish"}`,
		`{"sleep_quality":8,"finished_sleeping":true,"back_to_bed_at":"2026-03-02T08:00:00Z"}`,
	}
	for _, body := range cases {
		rec := doJSON(t, router, "POST", "/sleepsessions/wakeup", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body=%s", body)
	}

	// Boundary values succeed.
	rec = doJSON(t, router, "POST", "/sleepsessions/wakeup", token, `{"sleep_quality":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, "POST", "/sleepsessions/wakeup", token, `{"sleep_quality":10}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBeginSession_ForeignBedroom(t *testing.T) {
	router, token := setupServer(t)

	// Second user owns the bedroom.
	rec := doJSON(t, router, "POST", "/auth/register", "", `{"username":"intruder","password":"hunter2hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg struct {
		Meta struct {
			Token string `json:"token"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	foreignBedroom := createBedroom(t, router, reg.Meta.Token)

	rec = doJSON(t, router, "POST", "/sleepsessions", token, `{"bedroom_id":"`+foreignBedroom+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No session was created for either user.
	rec = doJSON(t, router, "GET", "/sleepsessions", token, "")
	var list struct {
		Data []internal.SleepSession `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Data)
}

func TestAuthRequired(t *testing.T) {
	router, _ := setupServer(t)

	rec := doJSON(t, router, "GET", "/sleepsessions", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "GET", "/sleepsessions", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileFlow(t *testing.T) {
	router, token := setupServer(t)

	rec := doJSON(t, router, "GET", "/users/profile", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Data internal.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "dreamer", profile.Data.Username)

	rec = doJSON(t, router, "PUT", "/users/profile", token, `{"username":"nightowl"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "nightowl", profile.Data.Username)

	// Login with the wrong password is rejected.
	rec = doJSON(t, router, "POST", "/auth/login", "", `{"username":"nightowl","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
