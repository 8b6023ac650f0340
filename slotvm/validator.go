// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

// ConflictKind labels why a candidate schema is incompatible with the
// active one.
type ConflictKind string

const (
	// ConflictVersionOrdering: candidate's version number is not strictly
	// greater than the active version.
	ConflictVersionOrdering ConflictKind = "version-ordering"
	// ConflictMissing: a component of the active schema is absent from the
	// candidate.
	ConflictMissing ConflictKind = "missing"
	// ConflictMoved: an existing component's range changed start.
	ConflictMoved ConflictKind = "moved"
	// ConflictResized: an existing component's range changed length.
	ConflictResized ConflictKind = "resized"
	// ConflictInserted: a new component's range begins before the end of
	// the active schema's last range.
	ConflictInserted ConflictKind = "inserted"
)

// Conflict describes one incompatibility between an active schema and a
// candidate. Expected is the range the component must keep (for existing
// components, its active range; for new components, the first legal
// append position); Actual is the range the candidate gives it.
type Conflict struct {
	ComponentID string       `json:"componentID"`
	Kind        ConflictKind `json:"kind"`
	Expected    SlotRange    `json:"expected"`
	Actual      SlotRange    `json:"actual"`
}

// MigrationReport is the complete outcome of validating one candidate
// schema against the active one. All conflicts are enumerated, not just
// the first, so one validation run surfaces the whole incompatibility
// picture.
type MigrationReport struct {
	Accepted  bool       `json:"accepted"`
	Conflicts []Conflict `json:"conflicts"`
}

// Validate decides whether replacing [old] with [new] preserves storage
// compatibility. Existing components must keep their exact slot ranges;
// new components may only be appended after every range [old] uses; the
// version number must strictly increase. Incompatibilities are reported,
// never returned as errors.
func Validate(old, new *SchemaVersion) *MigrationReport {
	report := &MigrationReport{}

	if new.VersionNumber <= old.VersionNumber {
		report.Conflicts = append(report.Conflicts, Conflict{
			Kind:     ConflictVersionOrdering,
			Expected: SlotRange{Start: old.VersionNumber + 1, End: old.VersionNumber + 1},
			Actual:   SlotRange{Start: new.VersionNumber, End: new.VersionNumber},
		})
	}

	oldAssign := old.Assignment()
	newAssign := new.Assignment()

	// Every component [old] owns must survive with an identical range.
	for _, id := range oldAssign.Components() {
		oldRange, _ := oldAssign.Range(id)
		newRange, ok := newAssign.Range(id)
		switch {
		case !ok:
			report.Conflicts = append(report.Conflicts, Conflict{
				ComponentID: id,
				Kind:        ConflictMissing,
				Expected:    oldRange,
			})
		case newRange.Start != oldRange.Start:
			report.Conflicts = append(report.Conflicts, Conflict{
				ComponentID: id,
				Kind:        ConflictMoved,
				Expected:    oldRange,
				Actual:      newRange,
			})
		case newRange.Len() != oldRange.Len():
			report.Conflicts = append(report.Conflicts, Conflict{
				ComponentID: id,
				Kind:        ConflictResized,
				Expected:    oldRange,
				Actual:      newRange,
			})
		}
	}

	// Components introduced by [new] may only live past [old]'s tail.
	oldTail := oldAssign.TotalSlots()
	for _, id := range newAssign.Components() {
		if _, existed := oldAssign.Range(id); existed {
			continue
		}
		newRange, _ := newAssign.Range(id)
		if newRange.Start < oldTail {
			report.Conflicts = append(report.Conflicts, Conflict{
				ComponentID: id,
				Kind:        ConflictInserted,
				Expected:    SlotRange{Start: oldTail, End: oldTail + newRange.Len()},
				Actual:      newRange,
			})
		}
	}

	report.Accepted = len(report.Conflicts) == 0
	return report
}
