package writer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_SendReceive(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 5; i++ {
		require.True(t, q.Send(i))
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		val, ok := q.Receive()
		require.True(t, ok)
		assert.Equal(t, i, val)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_GrowAt70Percent(t *testing.T) {
	q := NewQueue[int](10)

	for i := 0; i < 7; i++ {
		q.Send(i)
	}

	stats := q.Stats()
	assert.Greater(t, stats.Capacity, 10)
	assert.Equal(t, 1, stats.ResizeCount)

	for i := 0; i < 7; i++ {
		val, ok := q.Receive()
		require.True(t, ok)
		assert.Equal(t, i, val)
	}
}

func TestQueue_GrowWhileWrapped(t *testing.T) {
	q := NewQueue[int](10)

	// Advance head so the next sends wrap around the ring.
	for i := 0; i < 5; i++ {
		q.Send(-1)
		q.Receive()
	}
	for i := 0; i < 20; i++ {
		require.True(t, q.Send(i))
	}
	for i := 0; i < 20; i++ {
		val, ok := q.Receive()
		require.True(t, ok)
		assert.Equal(t, i, val)
	}
}

func TestQueue_ReceiveBlocksUntilSend(t *testing.T) {
	q := NewQueue[int](4)

	got := make(chan int, 1)
	go func() {
		val, _ := q.Receive()
		got <- val
	}()

	time.Sleep(20 * time.Millisecond)
	q.Send(42)

	select {
	case val := <-got:
		assert.Equal(t, 42, val)
	case <-time.After(time.Second):
		t.Fatal("Receive did not wake up")
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue[int](4)
	q.Send(1)
	q.Close()

	assert.False(t, q.Send(2))

	_, ok := q.Receive()
	assert.False(t, ok)
}

func TestQueue_CloseWakesReceivers(t *testing.T) {
	q := NewQueue[int](4)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Receive()
			assert.False(t, ok)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receivers not woken by Close")
	}
}
