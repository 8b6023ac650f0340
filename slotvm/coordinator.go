// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/inconshreveable/log15"
)

var (
	// ErrInitializerFailure wraps an error returned by a version's
	// initializer. The upgrade attempt is rolled back in full: the prior
	// schema stays authoritative and no allocated slot survives.
	ErrInitializerFailure = errors.New("initializer failed")

	errUnknownInitializer   = errors.New("no initializer registered for tag")
	errInitializerReplayed  = errors.New("initializer already ran for version")
	errAllocationMismatch   = errors.New("allocated range does not match computed assignment")
	errNoActiveSchema       = errors.New("store has no active schema")
	errAlreadyBootstrapped  = errors.New("store already bootstrapped")
	errDuplicateInitializer = errors.New("initializer tag already registered")
)

// Initializer performs the one-time setup for a newly committed
// SchemaVersion. It receives the slot store and the allocated ranges of the
// components that version introduced; components carried over from the prior
// version are never handed out again.
type Initializer func(store SlotStore, newRanges map[string]SlotRange) error

// UpgradeStatus is the coordinator's position in the upgrade state machine.
// Committed and Rejected are terminal per attempt; the coordinator then
// returns to Idle, ready for the next candidate.
type UpgradeStatus uint32

const (
	StatusIdle UpgradeStatus = iota
	StatusValidating
	StatusCommitting
)

// UpgradeCoordinator sequences schema upgrades against one store: validate
// the candidate, then atomically swap the active schema, allocate the new
// components' slots and run the version's initializer. At most one upgrade
// is in flight at a time; concurrent attempts serialize on [lock]. Every
// commit of the shared state goes through the coordinator, so nothing can
// flush a half-staged upgrade.
type UpgradeCoordinator struct {
	lock sync.Mutex

	// accessed atomically so status stays observable while [lock] is held
	// for the whole upgrade
	status uint32

	state  State
	active *SchemaVersion

	initializers map[string]Initializer
}

// NewUpgradeCoordinator returns a coordinator over [state]. If the store was
// bootstrapped before, the active schema is loaded from it.
func NewUpgradeCoordinator(state State) (*UpgradeCoordinator, error) {
	c := &UpgradeCoordinator{
		state:        state,
		initializers: make(map[string]Initializer),
	}

	initialized, err := state.IsInitialized()
	if err != nil {
		return nil, err
	}
	if !initialized {
		return c, nil
	}

	versionNumber, err := state.GetActiveVersion()
	if err != nil {
		return nil, err
	}
	c.active, err = state.GetSchema(versionNumber)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RegisterInitializer binds [fn] to [tag]. Each SchemaVersion names the tag
// of the initializer to run when it is committed; the empty tag means the
// version needs no setup.
func (c *UpgradeCoordinator) RegisterInitializer(tag string, fn Initializer) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.initializers[tag]; ok {
		return fmt.Errorf("%w: %q", errDuplicateInitializer, tag)
	}
	c.initializers[tag] = fn
	return nil
}

// ActiveSchema returns the committed schema currently governing the store,
// or an error if the store was never bootstrapped.
func (c *UpgradeCoordinator) ActiveSchema() (*SchemaVersion, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.active == nil {
		return nil, errNoActiveSchema
	}
	return c.active, nil
}

// Status returns the coordinator's position in the upgrade state machine.
// It never blocks, so an in-flight upgrade (including its initializer) can
// be observed as Validating or Committing.
func (c *UpgradeCoordinator) Status() UpgradeStatus {
	return UpgradeStatus(atomic.LoadUint32(&c.status))
}

func (c *UpgradeCoordinator) setStatus(status UpgradeStatus) {
	atomic.StoreUint32(&c.status, uint32(status))
}

// PutSlot writes one slot value and durably commits it, serialized with any
// in-flight upgrade. Direct SetSlot+Commit against the shared state would
// race an upgrade's staged writes and could make a half-applied schema swap
// durable before its initializer finished.
func (c *UpgradeCoordinator) PutSlot(slot uint64, value [ValueLen]byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.state.SetSlot(slot, value); err != nil {
		return err
	}
	return c.state.Commit()
}

// Shutdown flushes pending writes and closes the state, serialized with any
// in-flight upgrade for the same reason as PutSlot.
func (c *UpgradeCoordinator) Shutdown() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.state.Commit(); err != nil {
		return err
	}
	return c.state.Close()
}

// Bootstrap installs [genesis] as the first schema of an empty store:
// every component's range is allocated and the genesis initializer runs.
// The whole step commits atomically, the teacher pattern being the
// genesis-block flow of a fresh chain database.
func (c *UpgradeCoordinator) Bootstrap(genesis *SchemaVersion) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.active != nil {
		return errAlreadyBootstrapped
	}

	assignment := genesis.Assignment()
	newRanges := make(map[string]SlotRange, len(genesis.Components))
	for _, id := range assignment.Components() {
		r, _ := assignment.Range(id)
		newRanges[id] = r
	}

	if err := c.apply(genesis, assignment.Components(), newRanges); err != nil {
		return err
	}
	if err := c.state.SetInitialized(); err != nil {
		c.state.Abort()
		return err
	}
	if err := c.state.Commit(); err != nil {
		c.state.Abort()
		return err
	}

	c.active = genesis
	log.Info("bootstrapped store", "version", genesis.VersionNumber, "components", len(genesis.Components))
	return nil
}

// Upgrade validates [candidate] against the active schema and, if accepted,
// commits it. Validation failures are not errors: the report carries every
// conflict found and the store is untouched. An error return means the
// attempt itself failed (initializer error, database error) and was rolled
// back; the prior schema remains authoritative either way.
func (c *UpgradeCoordinator) Upgrade(candidate *SchemaVersion) (*MigrationReport, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.active == nil {
		return nil, errNoActiveSchema
	}

	c.setStatus(StatusValidating)
	defer c.setStatus(StatusIdle)

	report := Validate(c.active, candidate)
	if !report.Accepted {
		log.Warn("upgrade rejected",
			"activeVersion", c.active.VersionNumber,
			"candidateVersion", candidate.VersionNumber,
			"conflicts", len(report.Conflicts),
		)
		return report, nil
	}

	c.setStatus(StatusCommitting)

	oldAssignment := c.active.Assignment()
	newAssignment := candidate.Assignment()
	newComponents := make([]string, 0, len(candidate.Components))
	newRanges := make(map[string]SlotRange)
	for _, id := range newAssignment.Components() {
		if _, existed := oldAssignment.Range(id); existed {
			continue
		}
		r, _ := newAssignment.Range(id)
		newComponents = append(newComponents, id)
		newRanges[id] = r
	}

	if err := c.apply(candidate, newComponents, newRanges); err != nil {
		return nil, err
	}
	if err := c.state.Commit(); err != nil {
		c.state.Abort()
		return nil, err
	}

	c.active = candidate
	log.Info("upgrade committed",
		"version", candidate.VersionNumber,
		"newComponents", len(newComponents),
		"totalSlots", newAssignment.TotalSlots(),
	)
	return report, nil
}

// apply stages one accepted schema into the versioned state: persist the
// schema, advance the active pointer, allocate the new components' ranges
// and run the initializer exactly once. Any failure aborts the staged
// writes. Callers must hold [lock] and still need to Commit.
func (c *UpgradeCoordinator) apply(schema *SchemaVersion, newComponents []string, newRanges map[string]SlotRange) error {
	if err := c.state.PutSchema(schema); err != nil {
		c.state.Abort()
		return err
	}
	if err := c.state.SetActiveVersion(schema.VersionNumber); err != nil {
		c.state.Abort()
		return err
	}

	// Allocation is called exactly once per new component; the returned
	// start must agree with the computed assignment or the store's
	// high-water mark has drifted from the schema history.
	for _, id := range newComponents {
		expected := newRanges[id]
		start, err := c.state.AllocateRange(expected.Len())
		if err != nil {
			c.state.Abort()
			return err
		}
		if start != expected.Start {
			c.state.Abort()
			return fmt.Errorf("%w: component %q expected %d, allocated %d",
				errAllocationMismatch, id, expected.Start, start)
		}
	}

	if err := c.runInitializer(schema, newRanges); err != nil {
		c.state.Abort()
		return err
	}
	return nil
}

// runInitializer invokes the schema's initializer with the newly allocated
// ranges, guarded by the per-version mark so it can never run twice.
func (c *UpgradeCoordinator) runInitializer(schema *SchemaVersion, newRanges map[string]SlotRange) error {
	if schema.InitializerTag == "" {
		return nil
	}

	ran, err := c.state.IsVersionInitialized(schema.VersionNumber)
	if err != nil {
		return err
	}
	if ran {
		return fmt.Errorf("%w: %d", errInitializerReplayed, schema.VersionNumber)
	}

	fn, ok := c.initializers[schema.InitializerTag]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownInitializer, schema.InitializerTag)
	}

	if err := fn(c.state, newRanges); err != nil {
		log.Error("initializer failed, rolling upgrade back",
			"version", schema.VersionNumber,
			"tag", schema.InitializerTag,
			"error", err,
		)
		return &initializerError{
			versionNumber: schema.VersionNumber,
			tag:           schema.InitializerTag,
			cause:         err,
		}
	}

	return c.state.SetVersionInitialized(schema.VersionNumber)
}

// initializerError ties an initializer failure to its version and tag.
// errors.Is matches it against ErrInitializerFailure and, through Unwrap,
// against the initializer's own error.
type initializerError struct {
	versionNumber uint64
	tag           string
	cause         error
}

func (e *initializerError) Error() string {
	return fmt.Sprintf("%s: version %d tag %q: %s",
		ErrInitializerFailure, e.versionNumber, e.tag, e.cause)
}

func (e *initializerError) Is(target error) bool { return target == ErrInitializerFailure }

func (e *initializerError) Unwrap() error { return e.cause }
