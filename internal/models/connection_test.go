package models

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair_IsOrderIndependent(t *testing.T) {
	for i := 0; i < 100; i++ {
		x, y := uuid.New(), uuid.New()

		forward := CanonicalPair(x, y)
		backward := CanonicalPair(y, x)

		assert.Equal(t, forward, backward)
		assert.LessOrEqual(t, bytes.Compare(forward.A[:], forward.B[:]), 0)
		assert.Equal(t, forward.LockKey(), backward.LockKey())
	}
}

func TestCanonicalPair_KnownOrder(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")

	pair := CanonicalPair(high, low)

	assert.Equal(t, low, pair.A)
	assert.Equal(t, high, pair.B)
	assert.Equal(t, low.String()+":"+high.String(), pair.LockKey())
}

func TestConnection_Other(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	conn := Connection{UserAID: a, UserBID: b}

	assert.Equal(t, b, conn.Other(a))
	assert.Equal(t, a, conn.Other(b))
	assert.True(t, conn.Involves(a))
	assert.False(t, conn.Involves(uuid.New()))
}
