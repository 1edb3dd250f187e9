package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-webanalyze/internal/models"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	for _, url := range []string{"a", "b", "c"} {
		require.NoError(t, q.Put(models.Job{URL: url}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		job, ok := q.Get()
		require.True(t, ok)
		assert.Equal(t, want, job.URL)
		q.Done()
	}
	q.Join()
}

func TestQueueGetBlocksUntilPut(t *testing.T) {
	q := NewQueue()
	got := make(chan string)

	go func() {
		job, _ := q.Get()
		got <- job.URL
	}()

	select {
	case <-got:
		t.Fatal("Get returned before Put")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Put(models.Job{URL: "late"}))
	assert.Equal(t, "late", <-got)
}

func TestQueueJoinWaitsForDone(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Put(models.Job{URL: "a"}))

	joined := make(chan struct{})
	go func() {
		q.Join()
		close(joined)
	}()

	_, ok := q.Get()
	require.True(t, ok)

	select {
	case <-joined:
		t.Fatal("Join returned before Done")
	case <-time.After(20 * time.Millisecond):
	}

	q.Done()
	<-joined
}

func TestQueueClose(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Put(models.Job{URL: "a"}))
	q.Close()

	assert.ErrorIs(t, q.Put(models.Job{URL: "b"}), ErrQueueClosed)

	job, ok := q.Get()
	require.True(t, ok)
	assert.Equal(t, "a", job.URL)

	_, ok = q.Get()
	assert.False(t, ok)
}

func TestQueueCloseWakesWaiters(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.Get()
			assert.False(t, ok)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()
	wg.Wait()
}

func TestQueueDoneWithoutPutPanics(t *testing.T) {
	assert.Panics(t, func() { NewQueue().Done() })
}

func TestNewOnlineJob(t *testing.T) {
	job := NewOnlineJob("example.com", 5, true, false)
	assert.Equal(t, "http://example.com", job.URL)
	assert.Equal(t, 1, job.Crawl)
	assert.True(t, job.SearchSubdomains)
	assert.False(t, job.FollowRedirects)

	job = NewOnlineJob("https://example.com", -1, false, true)
	assert.Equal(t, "https://example.com", job.URL)
	assert.Equal(t, 0, job.Crawl)
	assert.True(t, job.FollowRedirects)
}
