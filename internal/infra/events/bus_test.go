package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/storefront/internal/infra/events"
)

func TestBus_DeliversInOrder(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()

	var got []int

	require.NoError(t, bus.Subscribe("n", func(n int) { got = append(got, n) }))

	bus.Post("n", 1)
	bus.Post("n", 2)
	bus.Publish("n", 3)

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestBus_PublishFromHandler(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()

	var got []string

	require.NoError(t, bus.Subscribe("a", func(s string) {
		got = append(got, s)
		bus.Publish("b", s+">b")
		got = append(got, s+" done")
	}))
	require.NoError(t, bus.Subscribe("b", func(s string) { got = append(got, s) }))

	done := make(chan struct{})

	go func() {
		defer close(done)

		bus.Publish("a", "a")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing from a handler blocked")
	}

	assert.Equal(t, []string{"a", "a done", "a>b"}, got)
}

func TestBus_RecoversAfterPanic(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()

	var calls int

	require.NoError(t, bus.Subscribe("x", func(fail bool) {
		calls++

		if fail {
			panic("handler failed")
		}
	}))

	assert.Panics(t, func() { bus.Publish("x", true) })

	bus.Publish("x", false)
	assert.Equal(t, 2, calls)
}

func TestBus_ConcurrentPublish(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()

	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
	)

	require.NoError(t, bus.Subscribe("n", func(n int) {
		mu.Lock()
		defer mu.Unlock()

		total += n
	}))

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			bus.Publish("n", 1)
		}()
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 20, total)
}
