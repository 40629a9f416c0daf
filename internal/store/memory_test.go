package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess := &Session{ID: "abc"}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, s.Delete(ctx, "abc"))
	_, err = s.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownIsNoOp(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(context.Background(), "nope"))
}

func TestMarkReadyClaimsSessionOnce(t *testing.T) {
	sess := NewSession("abc")

	select {
	case <-sess.Ready():
		t.Fatal("session ready before any attach")
	default:
	}

	assert.True(t, sess.MarkReady())
	assert.False(t, sess.MarkReady())

	select {
	case <-sess.Ready():
	default:
		t.Fatal("ready channel not closed after attach")
	}
}

func TestNewIDUniqueAndHex(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
