// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"errors"
	"fmt"
)

var errDuplicateComponent = errors.New("duplicate component id in schema")

// ComponentLayout declares one named unit of state and the number of
// consecutive slots it occupies. Immutable once constructed.
type ComponentLayout struct {
	ComponentID string `serialize:"true" json:"componentID"`
	SlotCount   uint64 `serialize:"true" json:"slotCount"`
}

// SchemaVersion is an ordered composition of components defining the full
// storage layout at one version. Component order is authoritative: slot
// ranges are assigned by walking the components in declaration order.
type SchemaVersion struct {
	VersionNumber  uint64            `serialize:"true" json:"versionNumber"`
	Components     []ComponentLayout `serialize:"true" json:"components"`
	InitializerTag string            `serialize:"true" json:"initializerTag"`
}

// NewSchemaVersion builds an immutable SchemaVersion from [components].
// Construction fails if two components share an ID; nothing else is
// validated here (compatibility against an active schema is the
// validator's job).
func NewSchemaVersion(versionNumber uint64, initializerTag string, components []ComponentLayout) (*SchemaVersion, error) {
	seen := make(map[string]struct{}, len(components))
	for _, c := range components {
		if _, ok := seen[c.ComponentID]; ok {
			return nil, fmt.Errorf("%w: %q", errDuplicateComponent, c.ComponentID)
		}
		seen[c.ComponentID] = struct{}{}
	}

	// Copy so later mutation of the caller's slice can't change the schema
	owned := make([]ComponentLayout, len(components))
	copy(owned, components)

	return &SchemaVersion{
		VersionNumber:  versionNumber,
		Components:     owned,
		InitializerTag: initializerTag,
	}, nil
}

// SlotRange is a half-open range [Start, End) of slot indices.
type SlotRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Len returns the number of slots in the range.
func (r SlotRange) Len() uint64 { return r.End - r.Start }

// SlotAssignment maps each component of one SchemaVersion to its slot range.
// It is derived, never stored: recomputing it for the same schema always
// yields identical ranges.
type SlotAssignment struct {
	ranges map[string]SlotRange
	order  []string
	total  uint64
}

// Assignment computes the slot assignment for [s]: offset starts at 0 and
// each component in declaration order takes [offset, offset+SlotCount).
func (s *SchemaVersion) Assignment() SlotAssignment {
	a := SlotAssignment{
		ranges: make(map[string]SlotRange, len(s.Components)),
		order:  make([]string, 0, len(s.Components)),
	}
	offset := uint64(0)
	for _, c := range s.Components {
		a.ranges[c.ComponentID] = SlotRange{Start: offset, End: offset + c.SlotCount}
		a.order = append(a.order, c.ComponentID)
		offset += c.SlotCount
	}
	a.total = offset
	return a
}

// Range returns the slot range assigned to [componentID] and whether the
// component exists in the assignment.
func (a SlotAssignment) Range(componentID string) (SlotRange, bool) {
	r, ok := a.ranges[componentID]
	return r, ok
}

// Components returns the component IDs in declaration order.
func (a SlotAssignment) Components() []string {
	order := make([]string, len(a.order))
	copy(order, a.order)
	return order
}

// TotalSlots returns the number of slots covered by the assignment, which is
// also the first slot past every assigned range.
func (a SlotAssignment) TotalSlots() uint64 { return a.total }
