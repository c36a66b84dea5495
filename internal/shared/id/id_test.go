package id

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindsCarryTheirPrefix(t *testing.T) {
	tests := []struct {
		kind Kind
		id   string
	}{
		{SandboxPrefix, NewSandboxID().String()},
		{SnippetPrefix, NewSnippetID().String()},
		{RequestPrefix, NewRequestID().String()},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.True(t, strings.HasPrefix(tt.id, string(tt.kind)+"_"), tt.id)
			assert.True(t, IsValidPrefixed(tt.id, tt.kind))
		})
	}
	assert.False(t, IsValidPrefixed(NewSandboxID().String(), SnippetPrefix))
}

func TestParse(t *testing.T) {
	kind, u, err := Parse(NewSnippetID().String())
	require.NoError(t, err)
	assert.Equal(t, SnippetPrefix, kind)
	assert.NotZero(t, u)

	for _, bad := range []string{"", "snip", "_01J0000000000000000000000", "snip_not-a-ulid", "snip_"} {
		_, _, err := Parse(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestTimestamp(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	src := NewSource(bytes.NewReader(make([]byte, 1024)), func() time.Time { return at })

	ts, err := Timestamp(src.New(SandboxPrefix))
	require.NoError(t, err)
	assert.True(t, at.Equal(ts), "got %s", ts)

	_, err = Timestamp("sbx_garbage")
	assert.Error(t, err)
}

func TestSourceIsMonotonic(t *testing.T) {
	at := time.Now()
	src := NewSource(nil, func() time.Time { return at })

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = src.New(RequestPrefix)
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids minted in the same millisecond must still sort")
}

func TestConcurrentGeneration(t *testing.T) {
	const goroutines, perG = 10, 100

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, goroutines*perG)
		wg   sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				id := NewSandboxID().String()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*perG)
}
