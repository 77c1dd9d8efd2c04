package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_LoadMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Load("unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SaveLoad(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save("thread", []byte(`{"messages":[]}`)))

	data, ok, err := s.Load("thread")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"messages":[]}`, string(data))
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save("thread", []byte("old")))
	require.NoError(t, s.Save("thread", []byte("new")))

	data, ok, err := s.Load("thread")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), data)
}

func TestStore_ThreadsAreIsolated(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save("a", []byte("one")))
	require.NoError(t, s.Save("b", []byte("two")))

	data, ok, err := s.Load("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), data)
}

func TestStore_Delete(t *testing.T) {
	s := openStore(t)

	require.NoError(t, s.Save("thread", []byte("x")))
	require.NoError(t, s.Delete("thread"))

	_, ok, err := s.Load("thread")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Delete("thread"))
}

func TestStore_ClosedOperations(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Save("t", nil), ErrClosed)
	_, _, err := s.Load("t")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Delete("t"), ErrClosed)

	// Double close is a no-op.
	assert.NoError(t, s.Close())
}

func TestStore_LockThreadSerializes(t *testing.T) {
	s := openStore(t)

	var mu sync.Mutex
	inCritical := 0
	maxSeen := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.LockThread("thread")
			defer unlock()

			mu.Lock()
			inCritical++
			if inCritical > maxSeen {
				maxSeen = inCritical
			}
			mu.Unlock()

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestStore_LockThread_IndependentThreads(t *testing.T) {
	s := openStore(t)

	unlockA := s.LockThread("a")
	defer unlockA()

	// A different thread's lock is not blocked.
	done := make(chan struct{})
	go func() {
		unlockB := s.LockThread("b")
		unlockB()
		close(done)
	}()
	<-done
}
