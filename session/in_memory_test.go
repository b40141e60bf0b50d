package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_LazyCreate(t *testing.T) {
	s := NewInMemoryStore()
	sess, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", sess.ID)
	assert.Empty(t, sess.State)
	assert.False(t, sess.Created.IsZero())
}

func TestUpdate_MergesDelta(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Update("s1", map[string]any{"a": 1}))
	require.NoError(t, s.Update("s1", map[string]any{"b": 2, "a": 3}))

	sess, err := s.Get("s1")
	require.NoError(t, err)
	v, ok := sess.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	v, ok = sess.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGet_ReturnsClone(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Update("s1", map[string]any{"a": 1}))

	sess, _ := s.Get("s1")
	sess.MergeState(map[string]any{"a": 99})

	again, _ := s.Get("s1")
	v, _ := again.Get("a")
	assert.Equal(t, 1, v)
}

func TestUpdate_Concurrent(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Update("s1", map[string]any{"k": j})
			}
		}()
	}
	wg.Wait()

	sess, err := s.Get("s1")
	require.NoError(t, err)
	_, ok := sess.Get("k")
	assert.True(t, ok)
}
