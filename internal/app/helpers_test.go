package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/domain"
	"cyber-sensei-progress/internal/infra/memory"
)

const testKey = "cyber_sensei_progress:u1"

// testClock is a settable clock for deterministic day arithmetic.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(n int) { c.now = c.now.AddDate(0, 0, n) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("entry-%d", n)
	}
}

func testOptions(clock *testClock) []app.Option {
	return []app.Option{
		app.WithClock(clock.Now),
		app.WithIDGenerator(sequentialIDs()),
	}
}

func newTestStore(t *testing.T, kv app.KVStore, clock *testClock) *app.Store {
	t.Helper()
	persistence := app.NewPersistence(kv, nil, nil)
	return app.OpenStore(context.Background(), testKey, persistence, testOptions(clock)...)
}

func seedState(t *testing.T, kv app.KVStore, key string, state domain.ProgressState) {
	t.Helper()
	raw, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), key, raw))
}

func seedRaw(t *testing.T, kv app.KVStore, key, raw string) {
	t.Helper()
	require.NoError(t, kv.Set(context.Background(), key, []byte(raw)))
}

func persistedState(t *testing.T, kv app.KVStore, key string) domain.ProgressState {
	t.Helper()
	raw, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	var state domain.ProgressState
	require.NoError(t, json.Unmarshal(raw, &state))
	return state
}

// failingKV reads nothing and rejects every write.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, domain.ErrKeyNotFound }
func (failingKV) Set(context.Context, string, []byte) error  { return errors.New("disk full") }
func (failingKV) Delete(context.Context, string) error       { return errors.New("disk full") }

// brokenKV fails reads with a backend error.
type brokenKV struct{ failingKV }

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("connection refused") }

func newMemoryKV() *memory.KVStore {
	return memory.NewKVStore()
}

func achievementIDs(achievements []domain.Achievement) []string {
	ids := make([]string, 0, len(achievements))
	for _, a := range achievements {
		ids = append(ids, a.ID)
	}
	return ids
}
