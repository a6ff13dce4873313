package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/logbook-backend/pkg/config"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	delete(m.data, key)
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	accessID := "access-123"
	token, err := manager.Generate(ctx, accessID, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ok, err := manager.HasSession(ctx, accessID); err != nil || !ok {
		t.Fatalf("expected session after generate, ok=%v err=%v", ok, err)
	}

	if _, _, err := manager.Rotate(ctx, accessID, userID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, accessID, uuid.New(), token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected token bound to its subject, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, userID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if ok, _ := manager.HasSession(ctx, newAccessID); !ok {
		t.Fatalf("expected new session to exist")
	}
	if newToken == token {
		t.Fatalf("expected a fresh refresh token")
	}

	if _, _, err := manager.Rotate(ctx, accessID, userID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("rotated token must not be reusable, got %v", err)
	}
}

// lockstepStore holds every Get until all expected readers have read, so
// concurrent rotations all pass validation before any of them claims the key.
type lockstepStore struct {
	*mockStore
	readers sync.WaitGroup
}

func (s *lockstepStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.mockStore.Get(ctx, key)
	s.readers.Done()
	s.readers.Wait()
	return val, err
}

func TestManagerConcurrentRotateSucceedsOnce(t *testing.T) {
	const callers = 2
	store := &lockstepStore{mockStore: newMockStore()}
	manager := &Manager{store: store, keyer: store, ttl: time.Hour}
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-old", userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	store.readers.Add(callers)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := manager.Rotate(ctx, "access-old", userID, token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInvalidRefreshToken):
				rejected++
			default:
				t.Errorf("unexpected rotate error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != callers-1 {
		t.Fatalf("expected exactly one rotation, got %d succeeded and %d rejected", succeeded, rejected)
	}
	if got := len(store.data); got != 1 {
		t.Fatalf("expected a single live session after the race, got %d", got)
	}
}

func TestManagerRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "access-1", uuid.New()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := manager.Revoke(ctx, "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := manager.HasSession(ctx, "access-1"); err != nil || ok {
		t.Fatalf("expected no session after revoke, ok=%v err=%v", ok, err)
	}
	if err := manager.Revoke(ctx, " "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}

func TestManagerGenerateValidatesInput(t *testing.T) {
	manager := newTestManager(newMockStore())
	if _, err := manager.Generate(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected missing access id error")
	}
	if _, err := manager.Generate(context.Background(), "access", uuid.Nil); err == nil {
		t.Fatal("expected missing user id error")
	}
}

func TestManagerRejectsCorruptRecord(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	store.data[store.AccessSessionKey("legacy")] = "not-json"

	if _, _, err := manager.Rotate(context.Background(), "legacy", uuid.New(), "not-json"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}

func TestNewManagerRequiresClient(t *testing.T) {
	if _, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 120}); err == nil {
		t.Fatal("expected nil client error")
	}
}
