package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pitchlab/app/client/openairt"
	"pitchlab/app/config"
	"pitchlab/app/domain"
	"pitchlab/app/service/avatar"
	"pitchlab/app/service/competition"
	"pitchlab/app/service/evaluation"
	"pitchlab/app/service/practice"
	"pitchlab/app/service/profile"
	"pitchlab/app/service/voice"
	"pitchlab/app/store"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	model := config.ModelConfig{
		BaseURL: "http://127.0.0.1:1",
		Token:   "sk-test",
		Model:   "gpt-4o-mini",
	}

	cfg := &config.Config{}
	cfg.OpenAI.Profile = model
	cfg.OpenAI.Avatar = model
	cfg.OpenAI.Evaluation = model
	cfg.OpenAI.Realtime = config.RealtimeConfig{
		Token:   "sk-test",
		BaseURL: "http://127.0.0.1:1",
		Model:   "gpt-4o-realtime-preview-2024-12-17",
	}
	cfg.Server.ReadTimeout = time.Second
	cfg.DB.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Practice.PitchDuration = 120
	cfg.Practice.QnaDuration = 60

	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	di := do.New()
	t.Cleanup(func() {
		_ = di.Shutdown()
	})

	do.ProvideValue(di, testConfig(t))
	do.Provide(di, openairt.NewClient)
	do.Provide(di, store.NewSQLite)
	do.Provide(di, profile.New)
	do.Provide(di, avatar.New)
	do.Provide(di, evaluation.New)
	do.Provide(di, voice.New)
	do.Provide(di, practice.New)
	do.Provide(di, competition.New)

	srv, err := New(di)
	require.NoError(t, err)

	return srv
}

func newErrorApp(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/fail", func(*fiber.Ctx) error {
		return err
	})
	return app
}

func TestErrorHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{practice.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("create: %w", practice.ErrInvalidSettings), http.StatusBadRequest},
		{competition.ErrInvalidSubmission, http.StatusBadRequest},
		{practice.ErrWrongPhase, http.StatusConflict},
		{practice.ErrBusy, http.StatusConflict},
		{competition.ErrVotingClosed, http.StatusForbidden},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
		{fiber.NewError(fiber.StatusTeapot, "teapot"), http.StatusTeapot},
	}

	for _, tc := range cases {
		app := newErrorApp(tc.err)

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, res.StatusCode, "error: %v", tc.err)

		var body errorResponse
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		assert.NotEmpty(t, body.Message)
		_ = res.Body.Close()
	}
}

func TestCreatePracticeRejectsUnknownProduct(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/practice",
		strings.NewReader(`{"product":"Aviva Nada","mode":"Apurado","difficultyLevel":"Difícil"}`))
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.app.Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestPracticeStartRouteExists(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/practice/no-such-id/start", nil)
	res, err := srv.app.Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	// a registered route maps the missing session to 404, not 405
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Contains(t, body.Message, "not found")
}

func TestVotingConfigDefaultsOpenThroughAPI(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/api/competition/voting", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var cfg domain.VotingConfig
	require.NoError(t, json.NewDecoder(res.Body).Decode(&cfg))
	assert.True(t, cfg.IsOpen)
}
