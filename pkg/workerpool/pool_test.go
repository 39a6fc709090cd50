package workerpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/pkg/workerpool"
)

func TestPool_RunsEverything(t *testing.T) {
	pool := workerpool.New(4)

	var count atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		for {
			err := pool.Submit(func() {
				defer wg.Done()
				count.Add(1)
			})
			if err == nil {
				break
			}
			require.ErrorIs(t, err, workerpool.ErrPoolFull)
			time.Sleep(time.Millisecond)
		}
	}
	wg.Wait()
	pool.Shutdown()
	assert.EqualValues(t, 100, count.Load())
}

func TestPool_FullQueueRejects(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))
	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)
	close(release)
}

func TestPool_ClosedRejects(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()
	pool.Shutdown()
	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
}

func TestPool_SurvivesPanic(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	require.NoError(t, pool.Submit(func() { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
}
