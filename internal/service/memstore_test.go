package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lookaway/internal/models"
	"lookaway/internal/repository"
)

// memStore is an in-memory UserStore and ProgressStore.
type memStore struct {
	mu       sync.Mutex
	users    []models.User
	sessions map[string]models.LoginSession
	progress map[int64]*models.Progress
	active   map[string]models.ActiveSession
	nextID   int64
	writes   int
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[string]models.LoginSession),
		progress: make(map[int64]*models.Progress),
		active:   make(map[string]models.ActiveSession),
	}
}

func (m *memStore) fail() error {
	if m.failWith != nil {
		return fmt.Errorf("%w: %w", repository.ErrStoreUnavailable, m.failWith)
	}
	return nil
}

func (m *memStore) addUser(username string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u := models.User{ID: m.nextID, Username: username, CreatedAt: time.Now()}
	m.users = append(m.users, u)
	return u
}

func (m *memStore) addProgress(userID int64, sessionTime float64, lookAways int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ended := time.Now()
	m.progress[m.nextID] = &models.Progress{
		ID: m.nextID, UserID: userID, SessionTime: sessionTime, LookAwayCount: lookAways,
		StartedAt: ended, EndedAt: &ended,
	}
}

func (m *memStore) CreateUser(_ context.Context, username, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.nextID++
	u := models.User{ID: m.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users = append(m.users, u)
	return &u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetAllUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	return append([]models.User(nil), m.users...), nil
}

func (m *memStore) CreateLoginSession(_ context.Context, id string, userID int64, expiresAt time.Time) (*models.LoginSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	s := models.LoginSession{ID: id, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.sessions[id] = s
	return &s, nil
}

func (m *memStore) GetLoginSession(_ context.Context, id string) (*models.LoginSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) DeleteLoginSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.sessions, id)
	delete(m.active, id)
	return nil
}

func (m *memStore) ListExpiredLoginSessions(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var ids []string
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) CreateProgress(_ context.Context, userID int64, startedAt time.Time) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.writes++
	m.nextID++
	p := &models.Progress{ID: m.nextID, UserID: userID, StartedAt: startedAt}
	m.progress[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *memStore) update(id int64, fn func(p *models.Progress)) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	p, ok := m.progress[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	if !p.IsOpen() {
		return nil, repository.ErrRecordClosed
	}
	m.writes++
	fn(p)
	cp := *p
	return &cp, nil
}

func (m *memStore) IncrementLookAways(_ context.Context, id int64) (*models.Progress, error) {
	return m.update(id, func(p *models.Progress) { p.LookAwayCount++ })
}

func (m *memStore) EndProgress(_ context.Context, id int64, sessionTime float64, endedAt time.Time) (*models.Progress, error) {
	return m.update(id, func(p *models.Progress) {
		p.SessionTime = sessionTime
		p.EndedAt = &endedAt
	})
}

func (m *memStore) get(id int64) models.Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.progress[id]
}

func (m *memStore) ListProgressByUser(_ context.Context, userID int64) ([]models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var out []models.Progress
	for _, p := range m.progress {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) MostRecentOpenProgress(_ context.Context, userID *int64) (*models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var best *models.Progress
	for _, p := range m.progress {
		if !p.IsOpen() || (userID != nil && p.UserID != *userID) {
			continue
		}
		if best == nil || p.ID > best.ID {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) BindActiveSession(_ context.Context, a models.ActiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.active[a.LoginSessionID] = a
	return nil
}

func (m *memStore) GetActiveSession(_ context.Context, id string) (*models.ActiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	a, ok := m.active[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) DeleteActiveSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.active, id)
	return nil
}
