package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartupStatus(t *testing.T) {
	s := NewStartupStatus()

	check := func(wantStatus int) startupResponse {
		t.Helper()
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, wantStatus, w.Code)
		var resp startupResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	resp := check(http.StatusServiceUnavailable)
	require.Zero(t, resp.Progress)
	require.Len(t, resp.Steps, 4)

	s.CompleteStep(StepDatabase)
	s.CompleteStep(StepMigrations)
	resp = check(http.StatusServiceUnavailable)
	require.Equal(t, 50, resp.Progress)
	require.Equal(t, StepMigrations, resp.Current)

	s.CompleteStep(StepServices)
	s.MarkReady()
	require.True(t, s.IsReady())
	resp = check(http.StatusOK)
	require.Equal(t, 100, resp.Progress)

	s.MarkShuttingDown()
	require.False(t, s.IsReady())
	check(http.StatusServiceUnavailable)
}
