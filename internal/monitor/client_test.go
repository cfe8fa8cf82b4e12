package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lookaway/internal/gaze"
	"lookaway/internal/service"
)

// fakeServer mimics the session endpoints for one user.
func fakeServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	count := 0
	ended := false
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "login-1", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /start_session", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session_id"); err != nil || c.Value != "login-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(StartedSession{ProgressID: 7, StartedAt: time.Now(), Token: "tok"})
	})
	mux.HandleFunc("POST /update_lookaway", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if ended {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "No active session"})
			return
		}
		count++
		json.NewEncoder(w).Encode(LookAwayResult{ProgressID: 7, LookAwayCount: count})
	})
	mux.HandleFunc("POST /end_session", func(w http.ResponseWriter, r *http.Request) {
		ended = true
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "look_away_count": count, "session_time": 12.5})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &count
}

func TestClientSessionLifecycle(t *testing.T) {
	srv, count := fakeServer(t)
	ctx := context.Background()

	client, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	_, err = client.StartSession(ctx)
	require.ErrorIs(t, err, service.ErrNotAuthenticated)

	require.NoError(t, client.Login(ctx, "alice", "correct horse"))
	started, err := client.StartSession(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(7), started.ProgressID)

	sink := client.Sink(started.Token)
	require.NoError(t, sink.LookAway(ctx, gaze.Event{Direction: gaze.Left}))
	require.NoError(t, sink.LookAway(ctx, gaze.Event{Direction: gaze.Right}))
	require.Equal(t, 2, *count)

	p, err := client.EndSession(ctx, started.Token)
	require.NoError(t, err)
	require.Equal(t, 2, p.LookAwayCount)
	require.Equal(t, 12.5, p.SessionTime)

	err = sink.LookAway(ctx, gaze.Event{Direction: gaze.Left})
	require.ErrorIs(t, err, service.ErrNoActiveSession)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "No active session", statusErr.Message)
}

func TestClientLoginRejected(t *testing.T) {
	srv, _ := fakeServer(t)
	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	err = client.Login(context.Background(), "alice", "nope")
	require.ErrorIs(t, err, service.ErrNotAuthenticated)
}
