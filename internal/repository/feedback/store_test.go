package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/singamnaresh/Meditaton-exercise-chatbot/internal/db"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "s1"); ok {
		t.Fatal("expected no feedback before Put")
	}

	if err := s.Put(ctx, "s1", "pose 3 correct"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, ok, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || text != "pose 3 correct" {
		t.Fatalf("got (%q, %v), want (\"pose 3 correct\", true)", text, ok)
	}

	// Sessions do not see each other's slots.
	if _, ok, _ := s.Get(ctx, "s2"); ok {
		t.Error("session s2 should not see s1 feedback")
	}
}

func TestMemoryStore_LastWriteWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Put(ctx, "s1", "first")
	_ = s.Put(ctx, "s1", "second")

	text, _, _ := s.Get(ctx, "s1")
	if text != "second" {
		t.Errorf("got %q, want %q", text, "second")
	}
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			_ = s.Put(ctx, id, "feedback")
			_, _, _ = s.Get(ctx, id)
		}(i)
	}
	wg.Wait()
}

// mockKV implements the kv consumer interface.
type mockKV struct {
	data    map[string][]byte
	lastTTL time.Duration
	getErr  error
	setErr  error
}

func newMockKV() *mockKV {
	return &mockKV{data: map[string][]byte{}}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func TestRedisStore_PutGet(t *testing.T) {
	kv := newMockKV()
	s := NewRedisStore(kv, 24*time.Hour)
	ctx := context.Background()

	if err := s.Put(ctx, "s1", "pose 2 incorrect"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kv.lastTTL != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", kv.lastTTL)
	}

	text, ok, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || text != "pose 2 incorrect" {
		t.Fatalf("got (%q, %v)", text, ok)
	}

	if _, ok, _ := s.Get(ctx, "other"); ok {
		t.Error("expected absence for unknown session")
	}
}

func TestRedisStore_KeyNamespacing(t *testing.T) {
	kv := newMockKV()
	s := NewRedisStore(kv, time.Hour)

	_ = s.Put(context.Background(), "abc", "x")
	if _, ok := kv.data["poseassist:feedback:abc"]; !ok {
		t.Errorf("expected namespaced key, got keys %v", keys(kv.data))
	}
}

func TestRedisStore_Errors(t *testing.T) {
	kv := newMockKV()
	kv.getErr = errors.New("connection reset")
	s := NewRedisStore(kv, time.Hour)

	if _, _, err := s.Get(context.Background(), "s1"); err == nil {
		t.Error("expected error from failing store")
	}

	kv2 := newMockKV()
	kv2.setErr = errors.New("connection reset")
	s2 := NewRedisStore(kv2, time.Hour)
	if err := s2.Put(context.Background(), "s1", "x"); err == nil {
		t.Error("expected error from failing store")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
