package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowhub-cloud/flowdex/internal/db/valkey"
)

// --- Mocks ---

type mockKV struct {
	getResult []byte
	getErr    error
	incrErr   error
	expireErr error

	incrKey   string
	incrVal   int64
	expireKey string
	expireTTL time.Duration
	expireNX  bool
	expired   bool
}

func (m *mockKV) Get(_ context.Context, _ string) ([]byte, error) {
	return m.getResult, m.getErr
}

func (m *mockKV) IncrBy(_ context.Context, key string, val int64) error {
	m.incrKey, m.incrVal = key, val
	return m.incrErr
}

func (m *mockKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.expireKey, m.expireTTL, m.expireNX = key, ttl, nx
	m.expired = true
	return m.expireErr
}

func TestTouch(t *testing.T) {
	kv := &mockKV{}
	s := New(kv, 24*time.Hour)

	if err := s.Touch(context.Background(), "lead-capture", KindView); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	if kv.incrKey != "flowdex:usage:lead-capture:views" {
		t.Errorf("incr key = %q", kv.incrKey)
	}
	if kv.incrVal != 1 {
		t.Errorf("incr val = %d", kv.incrVal)
	}
	if !kv.expired || !kv.expireNX || kv.expireTTL != 24*time.Hour {
		t.Errorf("expire: key=%q ttl=%v nx=%v called=%v", kv.expireKey, kv.expireTTL, kv.expireNX, kv.expired)
	}
}

func TestTouchNoTTL(t *testing.T) {
	kv := &mockKV{}
	s := New(kv, 0)

	if err := s.Touch(context.Background(), "x", KindDownload); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if kv.expired {
		t.Error("Expire called with zero ttl")
	}
	if kv.incrKey != "flowdex:usage:x:downloads" {
		t.Errorf("incr key = %q", kv.incrKey)
	}
}

func TestTouchIncrError(t *testing.T) {
	kv := &mockKV{incrErr: errors.New("conn refused")}
	s := New(kv, time.Hour)

	if err := s.Touch(context.Background(), "x", KindView); err == nil {
		t.Error("Touch = nil, want error")
	}
}

func TestGet(t *testing.T) {
	kv := &mockKV{getResult: []byte("42")}
	s := New(kv, 0)

	val, err := s.Get(context.Background(), "x", KindView)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != 42 {
		t.Errorf("Get = %d, want 42", val)
	}
}

func TestGetMissingKey(t *testing.T) {
	kv := &mockKV{getErr: valkey.ErrKeyNotFound}
	s := New(kv, 0)

	val, err := s.Get(context.Background(), "x", KindView)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != 0 {
		t.Errorf("Get = %d, want 0", val)
	}
}
