package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndGet(t *testing.T) {
	s := NewInMemoryStore()
	ref, err := s.Store("s1", "risk_analyzer", "analysis", []byte(`{"score":0.9}`), map[string]any{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	rec, err := s.Get("s1", ref)
	require.NoError(t, err)
	assert.Equal(t, "risk_analyzer", rec.AgentID)
	assert.Equal(t, "analysis", rec.Type)
	assert.Equal(t, []byte(`{"score":0.9}`), rec.Data)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Get("s1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	s.Store("s1", "a", "t", nil, nil)
	_, err = s.Get("s1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := NewInMemoryStore()
	r1, _ := s.Store("s1", "a", "t", []byte("x"), nil)
	r2, _ := s.Store("s1", "b", "t", []byte("y"), nil)
	s.Store("s2", "c", "t", []byte("z"), nil)

	refs, err := s.List("s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{r1, r2}, refs)

	empty, err := s.List("unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDelete(t *testing.T) {
	s := NewInMemoryStore()
	ref, _ := s.Store("s1", "a", "t", []byte("x"), nil)
	require.NoError(t, s.Delete("s1", ref))
	assert.ErrorIs(t, s.Delete("s1", ref), ErrNotFound)
	assert.ErrorIs(t, s.Delete("ghost", ref), ErrNotFound)
}

func TestDataIsolation(t *testing.T) {
	s := NewInMemoryStore()
	data := []byte("original")
	ref, _ := s.Store("s1", "a", "t", data, nil)
	data[0] = 'X'

	rec, err := s.Get("s1", ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), rec.Data)

	rec.Data[0] = 'Y'
	again, _ := s.Get("s1", ref)
	assert.Equal(t, []byte("original"), again.Data)
}
