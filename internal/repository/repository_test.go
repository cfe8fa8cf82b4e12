package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lookaway/internal/database"
	"lookaway/internal/models"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "lookaway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice, err := repo.CreateUser(ctx, "alice", "hash-a")
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, "bob", "hash-b")
	require.NoError(t, err)
	require.Greater(t, bob.ID, alice.ID)

	_, err = repo.CreateUser(ctx, "alice", "other")
	require.ErrorIs(t, err, ErrStoreUnavailable, "duplicate usernames are rejected by the store")

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)
	require.Equal(t, "hash-a", got.PasswordHash)

	got, err = repo.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", got.Username)

	missing, err := repo.GetUserByUsername(ctx, "carol")
	require.NoError(t, err)
	require.Nil(t, missing)

	users, err := repo.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, "bob", users[1].Username)
}

func TestLoginSessions(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = repo.CreateLoginSession(ctx, "live", user.ID, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.CreateLoginSession(ctx, "stale", user.ID, now.Add(-time.Hour))
	require.NoError(t, err)

	session, err := repo.GetLoginSession(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, user.ID, session.UserID)
	require.False(t, session.IsExpiredAt(now))

	expired, err := repo.ListExpiredLoginSessions(ctx, now)
	require.NoError(t, err)
	require.Equal(t, []string{"stale"}, expired)

	require.NoError(t, repo.DeleteLoginSession(ctx, "stale"))
	session, err = repo.GetLoginSession(ctx, "stale")
	require.NoError(t, err)
	require.Nil(t, session)

	require.NoError(t, repo.DeleteLoginSession(ctx, "live"))
	session, err = repo.GetLoginSession(ctx, "live")
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestProgressLifecycle(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p, err := repo.CreateProgress(ctx, user.ID, start)
	require.NoError(t, err)
	require.Zero(t, p.LookAwayCount)
	require.Zero(t, p.SessionTime)

	for i := 0; i < 3; i++ {
		p, err = repo.IncrementLookAways(ctx, p.ID)
		require.NoError(t, err)
	}
	require.Equal(t, 3, p.LookAwayCount)
	require.True(t, p.IsOpen())

	open, err := repo.MostRecentOpenProgress(ctx, &user.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, open.ID)

	end := start.Add(90 * time.Second)
	p, err = repo.EndProgress(ctx, p.ID, 90, end)
	require.NoError(t, err)
	require.Equal(t, 90.0, p.SessionTime)
	require.NotNil(t, p.EndedAt)
	require.True(t, end.Equal(*p.EndedAt))
	require.True(t, start.Equal(p.StartedAt))

	_, err = repo.IncrementLookAways(ctx, p.ID)
	require.ErrorIs(t, err, ErrRecordClosed)
	_, err = repo.EndProgress(ctx, p.ID, 10, end)
	require.ErrorIs(t, err, ErrRecordClosed)

	_, err = repo.IncrementLookAways(ctx, p.ID+100)
	require.ErrorIs(t, err, ErrRecordNotFound)

	open, err = repo.MostRecentOpenProgress(ctx, nil)
	require.NoError(t, err)
	require.Nil(t, open)
}

func TestIncrementLookAwaysConcurrent(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	p, err := repo.CreateProgress(ctx, user.ID, time.Now())
	require.NoError(t, err)

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementLookAways(ctx, p.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetProgress(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, workers, got.LookAwayCount)
}

func TestListProgressByUser(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	alice, err := users.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	bob, err := users.CreateUser(ctx, "bob", "hash")
	require.NoError(t, err)

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	first, err := repo.CreateProgress(ctx, alice.ID, base)
	require.NoError(t, err)
	second, err := repo.CreateProgress(ctx, alice.ID, base.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.CreateProgress(ctx, bob.ID, base.Add(2*time.Hour))
	require.NoError(t, err)

	records, err := repo.ListProgressByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, second.ID, records[0].ID)
	require.Equal(t, first.ID, records[1].ID)

	none, err := repo.ListProgressByUser(ctx, 12345)
	require.NoError(t, err)
	require.Empty(t, none)

	all, err := repo.ListAllProgress(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	newest, err := repo.MostRecentOpenProgress(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, bob.ID, newest.UserID)
}

func TestActiveSessions(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	_, err = users.CreateLoginSession(ctx, "login-1", user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	p1, err := repo.CreateProgress(ctx, user.ID, time.Now())
	require.NoError(t, err)
	p2, err := repo.CreateProgress(ctx, user.ID, time.Now())
	require.NoError(t, err)

	bound, err := repo.GetActiveSession(ctx, "login-1")
	require.NoError(t, err)
	require.Nil(t, bound)

	require.NoError(t, repo.BindActiveSession(ctx, models.ActiveSession{
		LoginSessionID: "login-1", UserID: user.ID, ProgressID: p1.ID, StartedAt: p1.StartedAt,
	}))
	require.NoError(t, repo.BindActiveSession(ctx, models.ActiveSession{
		LoginSessionID: "login-1", UserID: user.ID, ProgressID: p2.ID, StartedAt: p2.StartedAt,
	}))

	bound, err = repo.GetActiveSession(ctx, "login-1")
	require.NoError(t, err)
	require.Equal(t, p2.ID, bound.ProgressID)

	// Logging out cascades to the binding.
	require.NoError(t, users.DeleteLoginSession(ctx, "login-1"))
	bound, err = repo.GetActiveSession(ctx, "login-1")
	require.NoError(t, err)
	require.Nil(t, bound)
}
