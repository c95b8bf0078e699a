package manager

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/teranos/composr/store"
)

func TestRegister_ConcurrentKeepsInputOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 40).Draw(rt, "items")
		workers := rapid.IntRange(2, 8).Draw(rt, "concurrency")

		m, err := New(Config[*fixture]{
			ItemName:    "phrases",
			Store:       store.NewChangeSet[*fixture]("phrases"),
			Model:       newFixture,
			Concurrency: workers,
			Validator: func(_ context.Context, item *fixture) (*fixture, error) {
				// uneven latency so completion order differs from input order
				time.Sleep(time.Duration(len(item.ID())%3) * time.Millisecond)
				return item, nil
			},
		})
		if err != nil {
			rt.Fatal(err)
		}

		raws := make([]Raw, n)
		want := make([]string, n)
		for i := range raws {
			id := fmt.Sprintf("d!%s", rapid.StringMatching(`[a-z]{1,6}`).Draw(rt, "local"))
			raws[i] = Raw{"id": id}
			want[i] = id
		}

		results, err := m.Register(context.Background(), "d", raws...)
		if err != nil {
			rt.Fatal(err)
		}
		for i, r := range results {
			if r.ID != want[i] {
				rt.Fatalf("result %d: got %q want %q", i, r.ID, want[i])
			}
			if !r.Registered {
				rt.Fatalf("result %d not registered: %v", i, r.Err)
			}
		}
	})
}

func TestRegisterUnregister_SameKeyConcurrently(t *testing.T) {
	cs := store.NewChangeSet[*fixture]("phrases")
	m := newManager(t, Config[*fixture]{Store: cs, Concurrency: 4})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := m.Register(ctx, "d", Raw{"id": "d!hot", "md5": fmt.Sprint(i)})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Unregister(ctx, "d", "d!hot"))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(m.GetByDomain("d")), 1)
	_, err := m.Register(ctx, "d", Raw{"id": "d!hot", "md5": "final"})
	require.NoError(t, err)
	item, ok := m.GetByID("d!hot")
	require.True(t, ok)
	assert.Equal(t, "final", item.MD5())
}
