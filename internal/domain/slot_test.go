package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlot(t *testing.T) {
	start := testNow.Add(time.Hour)
	end := start.Add(time.Hour)

	slot, err := NewSlot("lec-1", start, end, 3, " Room 204 ", " Algorithms ", testNow)
	require.NoError(t, err)
	assert.True(t, slot.IsActive)
	assert.Equal(t, "Room 204", slot.Location)
	assert.Equal(t, "Algorithms", slot.Subject)

	_, err = NewSlot("lec-1", end, start, 1, "", "", testNow)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewSlot("lec-1", start, start, 1, "", "", testNow)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewSlot("lec-1", start, end, 0, "", "", testNow)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSlot(" ", start, end, 1, "", "", testNow)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSlot_RemainingCapacity(t *testing.T) {
	slot := &Slot{Capacity: 3}
	assert.Equal(t, 3, slot.RemainingCapacity(0))
	assert.Equal(t, 1, slot.RemainingCapacity(2))
	assert.Equal(t, 0, slot.RemainingCapacity(3))
	assert.Equal(t, 0, slot.RemainingCapacity(5))
}

func TestSlot_OwnedBy(t *testing.T) {
	slot := testSlot()
	assert.True(t, slot.OwnedBy(lecturer))
	assert.True(t, slot.OwnedBy(admin))
	assert.False(t, slot.OwnedBy(student))
	assert.False(t, slot.OwnedBy(Identity{Role: RoleLecturer}))
}
