// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentComputation(t *testing.T) {
	assert := assert.New(t)

	schema, err := NewSchemaVersion(1, "", []ComponentLayout{
		{ComponentID: "erc721base", SlotCount: 5},
		{ComponentID: "counter", SlotCount: 1},
		{ComponentID: "escrow", SlotCount: 3},
	})
	assert.NoError(err)

	assignment := schema.Assignment()
	assert.Equal([]string{"erc721base", "counter", "escrow"}, assignment.Components())
	assert.Equal(uint64(9), assignment.TotalSlots())

	r, ok := assignment.Range("erc721base")
	assert.True(ok)
	assert.Equal(SlotRange{Start: 0, End: 5}, r)

	r, ok = assignment.Range("counter")
	assert.True(ok)
	assert.Equal(SlotRange{Start: 5, End: 6}, r)

	r, ok = assignment.Range("escrow")
	assert.True(ok)
	assert.Equal(SlotRange{Start: 6, End: 9}, r)

	_, ok = assignment.Range("owner")
	assert.False(ok)
}

// Declaration order is authoritative: no reordering is ever applied, so the
// same schema always computes the same ranges.
func TestAssignmentDeterministic(t *testing.T) {
	assert := assert.New(t)

	schema, err := NewSchemaVersion(1, "", []ComponentLayout{
		{ComponentID: "zebra", SlotCount: 2},
		{ComponentID: "alpha", SlotCount: 4},
	})
	assert.NoError(err)

	first := schema.Assignment()
	second := schema.Assignment()
	assert.Equal(first.Components(), second.Components())
	for _, id := range first.Components() {
		firstRange, _ := first.Range(id)
		secondRange, _ := second.Range(id)
		assert.Equal(firstRange, secondRange)
	}

	// zebra is declared first, so it keeps the lower range
	r, _ := first.Range("zebra")
	assert.Equal(SlotRange{Start: 0, End: 2}, r)
}

func TestDuplicateComponent(t *testing.T) {
	assert := assert.New(t)

	_, err := NewSchemaVersion(1, "", []ComponentLayout{
		{ComponentID: "counter", SlotCount: 1},
		{ComponentID: "counter", SlotCount: 2},
	})
	assert.ErrorIs(err, errDuplicateComponent)
}

func TestEmptySchema(t *testing.T) {
	assert := assert.New(t)

	schema, err := NewSchemaVersion(1, "", nil)
	assert.NoError(err)

	assignment := schema.Assignment()
	assert.Empty(assignment.Components())
	assert.Zero(assignment.TotalSlots())
}

func TestZeroSlotComponent(t *testing.T) {
	assert := assert.New(t)

	schema, err := NewSchemaVersion(1, "", []ComponentLayout{
		{ComponentID: "marker", SlotCount: 0},
		{ComponentID: "counter", SlotCount: 1},
	})
	assert.NoError(err)

	assignment := schema.Assignment()
	r, ok := assignment.Range("marker")
	assert.True(ok)
	assert.Equal(SlotRange{Start: 0, End: 0}, r)
	assert.Zero(r.Len())

	r, _ = assignment.Range("counter")
	assert.Equal(SlotRange{Start: 0, End: 1}, r)
}

func TestSchemaImmutable(t *testing.T) {
	assert := assert.New(t)

	components := []ComponentLayout{{ComponentID: "counter", SlotCount: 1}}
	schema, err := NewSchemaVersion(1, "", components)
	assert.NoError(err)

	// Mutating the caller's slice must not change the schema
	components[0].SlotCount = 99
	r, _ := schema.Assignment().Range("counter")
	assert.Equal(SlotRange{Start: 0, End: 1}, r)
}
