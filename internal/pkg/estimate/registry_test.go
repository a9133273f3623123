package estimate

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_Key(t *testing.T) {
	assert.Equal(t, "alice@example.com", ScopeUser.Key("alice@example.com"))
	assert.Equal(t, ScopeGlobal.Key("alice@example.com"), ScopeGlobal.Key("bob@example.com"))

	assert.Equal(t, ScopeGlobal, ParseScope("global"))
	assert.Equal(t, ScopeUser, ParseScope("user"))
	assert.Equal(t, ScopeUser, ParseScope(""))
	assert.Equal(t, ScopeUser, ParseScope("bogus"))
}

func TestRegistry_SetAndSnapshot(t *testing.T) {
	r := NewRegistry(0)

	snap := r.Snapshot("alice")
	assert.False(t, snap.GenerationPresent)
	assert.False(t, snap.UsagePresent)
	assert.Equal(t, 0.0, snap.Generation.Value)

	g := r.SetGeneration("alice", 120.5)
	u := r.SetUsage("alice", 310)

	snap = r.Snapshot("alice")
	require.True(t, snap.GenerationPresent)
	require.True(t, snap.UsagePresent)
	assert.Equal(t, 120.5, snap.Generation.Value)
	assert.Equal(t, 310.0, snap.Usage.Value)
	assert.Equal(t, g.Version, snap.Generation.Version)
	assert.Greater(t, u.Version, g.Version)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	r := NewRegistry(0)

	r.SetUsage("alice", 100)
	r.SetUsage("alice", 40)

	assert.Equal(t, 40.0, r.Snapshot("alice").Usage.Value)
}

func TestRegistry_KeysAreIsolated(t *testing.T) {
	r := NewRegistry(0)

	r.SetUsage("alice", 500)
	r.SetGeneration("bob", 80)

	alice := r.Snapshot("alice")
	bob := r.Snapshot("bob")

	assert.True(t, alice.UsagePresent)
	assert.False(t, alice.GenerationPresent)
	assert.False(t, bob.UsagePresent)
	assert.Equal(t, 80.0, bob.Generation.Value)
}

func TestRegistry_TTL(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	r.SetGeneration("alice", 90)
	assert.True(t, r.Snapshot("alice").GenerationPresent)

	now = now.Add(2 * time.Minute)
	snap := r.Snapshot("alice")
	assert.False(t, snap.GenerationPresent)
	assert.Equal(t, 0.0, snap.Generation.Value)
}

func TestRegistry_Prune(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	r.SetGeneration("old", 1)
	now = now.Add(50 * time.Second)
	r.SetUsage("new", 2)
	now = now.Add(20 * time.Second)

	assert.Equal(t, 1, r.Prune())
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Snapshot("new").UsagePresent)

	// writes after a prune land in a fresh slot
	r.SetGeneration("old", 3)
	assert.Equal(t, 3.0, r.Snapshot("old").Generation.Value)
}

func TestRegistry_Prune_NoTTL(t *testing.T) {
	r := NewRegistry(0)
	r.SetGeneration("alice", 1)

	assert.Equal(t, 0, r.Prune())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Decide(t *testing.T) {
	r := NewRegistry(0)
	r.SetGeneration("alice", 100)
	r.SetUsage("alice", 150)

	errTooMuch := errors.New("too much")
	err := r.Decide("alice", func(s Snapshot) error {
		if s.Usage.Value > s.Generation.Value {
			return errTooMuch
		}
		return nil
	})
	assert.ErrorIs(t, err, errTooMuch)

	r.SetUsage("alice", 50)
	err = r.Decide("alice", func(s Snapshot) error {
		if s.Usage.Value > s.Generation.Value {
			return errTooMuch
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestRegistry_ConcurrentWriters(t *testing.T) {
	r := NewRegistry(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k"
			if i%2 == 0 {
				key = "other"
			}
			r.SetUsage(key, float64(i))
			r.SetGeneration(key, float64(i))
			_ = r.Snapshot(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, r.Len())
	snap := r.Snapshot("k")
	assert.True(t, snap.UsagePresent)
	assert.True(t, snap.GenerationPresent)
}
