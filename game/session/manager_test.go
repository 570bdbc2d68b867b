package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/tiny-battle-run/game/engine"
	"github.com/wricardo/tiny-battle-run/game/service"
)

func createTestConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	config.MoveIntervalMs = engine.MaxIntervalMs
	config.EnemySpawnIntervalMs = engine.MaxIntervalMs
	config.PickupSpawnIntervalMs = engine.MaxIntervalMs
	return config
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	manager := NewManager(opts...)
	t.Cleanup(manager.StopAll)
	return manager
}

// fakeBroadcaster records what sessions send to their viewers
type fakeBroadcaster struct {
	mu     sync.Mutex
	views  map[string]*fakeView
	events map[string][]engine.GameEvent
	closed []string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		views:  make(map[string]*fakeView),
		events: make(map[string][]engine.GameEvent),
	}
}

func (b *fakeBroadcaster) ViewFor(sessionID string) service.SessionView {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := &fakeView{}
	b.views[sessionID] = v
	return v
}

func (b *fakeBroadcaster) PublishEvents(sessionID string, events []engine.GameEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[sessionID] = append(b.events[sessionID], events...)
}

func (b *fakeBroadcaster) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, sessionID)
}

type fakeView struct {
	engine.NopView
	mu      sync.Mutex
	created int
}

func (v *fakeView) CreateVisual(kind string) engine.VisualHandle {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.created++
	return engine.VisualHandle(fmt.Sprintf("%s-%d", kind, v.created))
}

func TestManager_Create(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.ConfigID != "classic" {
			t.Errorf("Expected config ID 'classic', got '%s'", session.ConfigID)
		}
		if session.Scheduler == nil {
			t.Error("Expected scheduler to be running")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", "classic", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", "classic", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		invalidConfig := createTestConfig()
		invalidConfig.Name = ""
		_, err := manager.Create("invalid-test", "bad", invalidConfig)
		if err == nil {
			t.Error("Expected error for invalid config")
		}
		if _, err := manager.Get("invalid-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Failed session must not be registered")
		}
	})
}

func TestManager_GetCaseInsensitive(t *testing.T) {
	manager := newTestManager(t)
	created, err := manager.Create("AbCd", "classic", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	for _, id := range []string{"AbCd", "abcd", "ABCD"} {
		got, err := manager.Get(id)
		if err != nil {
			t.Errorf("Get(%q) error = %v", id, err)
			continue
		}
		if got != created {
			t.Errorf("Get(%q) returned a different session", id)
		}
	}

	if _, err := manager.Get("zzzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()

	first, err := manager.GetOrCreate("goc", "classic", config)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	second, err := manager.GetOrCreate("GOC", "classic", config)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_DeleteStopsScheduler(t *testing.T) {
	broadcaster := newFakeBroadcaster()
	manager := newTestManager(t, WithBroadcaster(broadcaster))

	session, err := manager.Create("del", "classic", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := manager.Delete("DEL"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	select {
	case <-session.Scheduler.Done():
	default:
		t.Error("Expected scheduler to be stopped after delete")
	}

	err = session.Do(context.Background(), func(e *engine.GameEngine) error { return nil })
	if !errors.Is(err, engine.ErrSchedulerStopped) {
		t.Errorf("Expected ErrSchedulerStopped, got %v", err)
	}

	if len(broadcaster.closed) != 1 || broadcaster.closed[0] != "del" {
		t.Errorf("Expected broadcaster to close 'del', got %v", broadcaster.closed)
	}

	if err := manager.Delete("del"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := manager.Create(id, "classic", config); err != nil {
			t.Fatalf("Failed to create session %s: %v", id, err)
		}
	}

	found := make(map[string]bool)
	for _, s := range manager.List() {
		found[s.ID] = true
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()

	active, _ := manager.Create("active", "classic", config)
	expired, _ := manager.Create("expired", "classic", config)

	// Simulate expired session
	expired.SetLastAccessed(time.Now().Add(-2 * time.Hour))
	active.Touch()

	deleted := manager.CleanupExpiredSessions(1 * time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}

	if _, err := manager.Get("expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
	<-expired.Scheduler.Done()
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := newTestManager(t)

	session, _ := manager.Create("access-test", "classic", createTestConfig())
	session.SetLastAccessed(time.Now().Add(-time.Minute))
	originalTime := session.LastAccessedAt()

	if err := manager.UpdateLastAccessed("access-test"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	if !session.LastAccessedAt().After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_BroadcasterWiring(t *testing.T) {
	broadcaster := newFakeBroadcaster()
	manager := newTestManager(t, WithBroadcaster(broadcaster))

	session, err := manager.Create("wired", "classic", createTestConfig())
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	broadcaster.mu.Lock()
	view := broadcaster.views["wired"]
	broadcaster.mu.Unlock()
	if view == nil {
		t.Fatal("Expected a view for the session")
	}
	view.mu.Lock()
	created := view.created
	view.mu.Unlock()
	if created != 1 {
		t.Errorf("Expected the player visual to be created, got %d visuals", created)
	}

	session.PublishEvents([]engine.GameEvent{{Type: engine.EventEnemyKilled, Currency: 1}})
	broadcaster.mu.Lock()
	events := broadcaster.events["wired"]
	broadcaster.mu.Unlock()
	if len(events) != 1 || events[0].Type != engine.EventEnemyKilled {
		t.Errorf("Expected enemy_killed to be published, got %+v", events)
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()
	ctx := context.Background()

	session1, _ := manager.Create("iso-1", "classic", config)
	session2, _ := manager.Create("iso-2", "classic", config)

	err := session1.Do(ctx, func(e *engine.GameEngine) error {
		return e.SetPointer(10, 100)
	})
	if err != nil {
		t.Fatalf("SetPointer failed: %v", err)
	}

	s1, _ := session1.Snapshot(ctx)
	s2, _ := session2.Snapshot(ctx)
	if s1.Player.X != 10 {
		t.Errorf("Expected session 1 player X 10, got %g", s1.Player.X)
	}
	if s2.Player.X != config.PlayerStartX {
		t.Error("Session 2 should not be affected by session 1 input")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("c-%d", id%20)
			if _, err := manager.GetOrCreate(sessionID, "classic", config); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 20 {
		t.Errorf("Expected 20 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := newTestManager(t)
	config := createTestConfig()

	generatedIDs := make(map[string]bool)
	for i := 0; i < 50; i++ {
		session, err := manager.Create("", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true

		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got %d", len(session.ID))
		}
	}
}

func TestManager_StopAll(t *testing.T) {
	manager := NewManager()
	a, _ := manager.Create("a", "classic", createTestConfig())
	b, _ := manager.Create("b", "classic", createTestConfig())

	manager.StopAll()

	if manager.Count() != 0 {
		t.Errorf("Expected no sessions after StopAll, got %d", manager.Count())
	}
	for _, s := range []*service.Session{a, b} {
		select {
		case <-s.Scheduler.Done():
		default:
			t.Errorf("Expected scheduler of %s to be stopped", s.ID)
		}
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestManager_CreateEntropyFailure(t *testing.T) {
	manager := newTestManager(t)
	manager.entropy = failingReader{}

	session, err := manager.Create("", "test", createTestConfig())
	if err == nil {
		t.Fatalf("Expected error when the random source fails, got session %v", session.ID)
	}
	if !strings.Contains(err.Error(), "entropy exhausted") {
		t.Errorf("Expected the read error to be wrapped, got %v", err)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected no session to be created, got %d", manager.Count())
	}

	// An explicit ID needs no randomness
	if _, err := manager.Create("ab12", "test", createTestConfig()); err != nil {
		t.Errorf("Expected explicit ID to succeed, got %v", err)
	}
}
