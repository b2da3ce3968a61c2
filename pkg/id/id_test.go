package id

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	const n = 1000
	ids := make([]string, n)
	for i := range ids {
		ids[i] = New()
	}

	seen := map[string]bool{}
	for i, id := range ids {
		assert.Len(t, id, 26)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		if i > 0 {
			assert.Less(t, ids[i-1], id)
		}
	}
}

func TestNewConcurrent(t *testing.T) {
	t.Parallel()

	const goroutines, per = 8, 100
	var mu sync.Mutex
	seen := map[string]bool{}

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, per)
			for i := range local {
				local[i] = New()
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				assert.False(t, seen[id])
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*per)
}
