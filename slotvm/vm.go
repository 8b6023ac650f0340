// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/version"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

const (
	Name = "slotvm"

	// ValueLen is the fixed size of one slot's opaque value
	ValueLen = 32
)

var (
	Version = version.NewDefaultVersion(1, 0, 0)

	errBadGenesisBytes = errors.New("genesis data should be a JSON schema definition")
	errNotInitialized  = errors.New("vm is not initialized")
)

// VM owns one versioned slot store: the composed state, the upgrade
// coordinator governing its schema history, and the API surface over both.
type VM struct {
	state       State
	coordinator *UpgradeCoordinator

	// initializers registered before Initialize, installed into the
	// coordinator when it is built
	pendingInitializers map[string]Initializer
}

// RegisterInitializer binds the one-time setup callback for the schema
// versions tagged [tag]. Genesis initializers must be registered before
// Initialize; later versions' initializers any time before their upgrade.
func (vm *VM) RegisterInitializer(tag string, fn Initializer) error {
	if vm.coordinator != nil {
		return vm.coordinator.RegisterInitializer(tag, fn)
	}
	if vm.pendingInitializers == nil {
		vm.pendingInitializers = make(map[string]Initializer)
	}
	if _, ok := vm.pendingInitializers[tag]; ok {
		return fmt.Errorf("%w: %q", errDuplicateInitializer, tag)
	}
	vm.pendingInitializers[tag] = fn
	return nil
}

// Initialize this vm
// [db] is this vm's database
// If the database is empty, [genesisBytes] must hold the JSON definition of
// the first schema; it is bootstrapped and its initializer runs. Otherwise
// the active schema is loaded and [genesisBytes] is ignored.
func (vm *VM) Initialize(db database.Database, genesisBytes []byte) error {
	log.Info("Initializing Slot VM", "Version", Version)

	vm.state = NewState(db)

	coordinator, err := NewUpgradeCoordinator(vm.state)
	if err != nil {
		log.Error("error initializing upgrade coordinator", "error", err)
		return err
	}
	for tag, fn := range vm.pendingInitializers {
		if err := coordinator.RegisterInitializer(tag, fn); err != nil {
			return err
		}
	}
	vm.pendingInitializers = nil
	vm.coordinator = coordinator

	// If database is empty, bootstrap it using the provided genesis schema
	initialized, err := vm.state.IsInitialized()
	if err != nil {
		return err
	}
	if !initialized {
		genesis, err := ParseSchemaDefinition(genesisBytes)
		if err != nil {
			log.Error("error while parsing genesis schema", "error", err)
			return fmt.Errorf("%w: %s", errBadGenesisBytes, err)
		}
		if err := vm.coordinator.Bootstrap(genesis); err != nil {
			log.Error("error while bootstrapping genesis schema", "error", err)
			return err
		}
		return nil
	}

	active, err := vm.coordinator.ActiveSchema()
	if err != nil {
		return err
	}
	log.Info("loaded active schema", "version", active.VersionNumber)
	return nil
}

// Upgrade submits [candidate] to the coordinator. The report says whether
// it was committed; a non-nil error means the attempt was rolled back.
func (vm *VM) Upgrade(candidate *SchemaVersion) (*MigrationReport, error) {
	if vm.coordinator == nil {
		return nil, errNotInitialized
	}
	return vm.coordinator.Upgrade(candidate)
}

// ActiveSchema returns the schema currently governing the store.
func (vm *VM) ActiveSchema() (*SchemaVersion, error) {
	if vm.coordinator == nil {
		return nil, errNotInitialized
	}
	return vm.coordinator.ActiveSchema()
}

// PutSlot writes one slot value and durably commits it, serialized with
// any in-flight upgrade.
func (vm *VM) PutSlot(slot uint64, value [ValueLen]byte) error {
	if vm.coordinator == nil {
		return errNotInitialized
	}
	return vm.coordinator.PutSlot(slot, value)
}

// Store exposes the slot store for reads. Durable writes go through
// PutSlot so they can't flush an upgrade's staged state.
func (vm *VM) Store() SlotStore { return vm.state }

// CreateHandlers returns a map where:
// Keys: The path extension for this VM's API (empty in this case)
// Values: The handler for the API
func (vm *VM) CreateHandlers() (map[string]http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")

	return map[string]http.Handler{
		"": server,
	}, server.RegisterService(&Service{vm}, Name)
}

// CreateStaticHandlers returns a map where:
// Keys: The path extension for this VM's static API
// Values: The handler for that static API
// The static API computes layouts without a backing store.
func (vm *VM) CreateStaticHandlers() (map[string]http.Handler, error) {
	newServer := rpc.NewServer()
	codec := cjson.NewCodec()
	newServer.RegisterCodec(codec, "application/json")
	newServer.RegisterCodec(codec, "application/json;charset=UTF-8")

	staticService := CreateStaticService()
	return map[string]http.Handler{
		"": newServer,
	}, newServer.RegisterService(staticService, Name)
}

// Shutdown flushes and closes the underlying database, serialized with any
// in-flight upgrade.
func (vm *VM) Shutdown() error {
	if vm.coordinator == nil {
		if vm.state != nil {
			return vm.state.Close()
		}
		return nil
	}
	return vm.coordinator.Shutdown()
}

// Returns this VM's version
func (vm *VM) Version() (string, error) {
	return Version.String(), nil
}
