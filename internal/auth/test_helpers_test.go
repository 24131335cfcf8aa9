package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

var testKey = []byte("test-signing-key-with-32-bytes!!")

// testHasher returns a Hasher with cheap parameters so tests stay fast.
func testHasher() *Hasher {
	return NewHasher(HasherConfig{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, MaxConcurrent: 4})
}

// fakeClock is a settable clock starting on a whole second.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testCodec(t *testing.T, clock *fakeClock, opts ...CodecOption) *Codec {
	t.Helper()
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	c, err := NewCodec(testKey, opts...)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return c
}

// memStore is an in-memory AccountStore and AdminCounter.
type memStore struct {
	mu       sync.Mutex
	bySubj   map[string]*Account
	failNext error
}

func newMemStore() *memStore {
	return &memStore{bySubj: make(map[string]*Account)}
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	for _, a := range m.bySubj {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memStore) GetAccountBySubject(_ context.Context, subjectID string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	a, ok := m.bySubj[subjectID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateAccount(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.bySubj[account.SubjectID]; ok {
		return ErrDuplicateIdentity
	}
	for _, a := range m.bySubj {
		if a.Email == account.Email {
			return ErrDuplicateIdentity
		}
	}
	cp := *account
	m.bySubj[account.SubjectID] = &cp
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, subjectID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	a, ok := m.bySubj[subjectID]
	if !ok {
		return ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *memStore) CountByRole(_ context.Context, role Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.bySubj {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

// addAccount stores an account with a real hash of password.
func (m *memStore) addAccount(t *testing.T, h *Hasher, a Account, password string) {
	t.Helper()
	hash, err := h.Hash(context.Background(), password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	a.PasswordHash = hash
	if err := m.CreateAccount(context.Background(), &a); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
}
