// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"testing"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/stretchr/testify/assert"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

var genesisJSON = []byte(`{
	"versionNumber": 1,
	"components": [
		{"componentID": "erc721base", "slotCount": 5},
		{"componentID": "counter", "slotCount": 1}
	]
}`)

func newTestVM() (*VM, error) {
	vm := &VM{}
	err := vm.Initialize(memdb.New(), genesisJSON)
	return vm, err
}

// Assert that after initialization, the vm has the state we expect
func TestGenesis(t *testing.T) {
	assert := assert.New(t)
	// Initialize the vm
	vm, err := newTestVM()
	assert.NoError(err)
	// Verify that the db is initialized
	ok, err := vm.state.IsInitialized()
	assert.NoError(err)
	assert.True(ok)

	// Verify the genesis schema is active with the layout we expect
	active, err := vm.ActiveSchema()
	assert.NoError(err)
	assert.Equal(uint64(1), active.VersionNumber)

	assignment := active.Assignment()
	assert.Equal([]string{"erc721base", "counter"}, assignment.Components())
	assert.Equal(uint64(6), assignment.TotalSlots())

	mark, err := vm.Store().HighWaterMark()
	assert.NoError(err)
	assert.Equal(uint64(6), mark)
}

func TestInitializeBadGenesis(t *testing.T) {
	assert := assert.New(t)

	vm := &VM{}
	err := vm.Initialize(memdb.New(), []byte("not a schema"))
	assert.ErrorIs(err, errBadGenesisBytes)

	vm = &VM{}
	err = vm.Initialize(memdb.New(), nil)
	assert.ErrorIs(err, errBadGenesisBytes)
}

// Reinitializing over a populated database loads the committed schema and
// ignores the genesis bytes.
func TestInitializeExistingDB(t *testing.T) {
	assert := assert.New(t)
	db := memdb.New()

	vm := &VM{}
	assert.NoError(vm.Initialize(db, genesisJSON))

	candidate := mustSchemaTagged(t, 2, "",
		ComponentLayout{ComponentID: "erc721base", SlotCount: 5},
		ComponentLayout{ComponentID: "counter", SlotCount: 1},
		ComponentLayout{ComponentID: "escrow", SlotCount: 3})
	report, err := vm.Upgrade(candidate)
	assert.NoError(err)
	assert.True(report.Accepted)
	assert.NoError(vm.Shutdown())

	reloaded := &VM{}
	// Different genesis bytes on purpose: they must be ignored
	assert.NoError(reloaded.Initialize(db, []byte(`{"versionNumber": 9}`)))

	active, err := reloaded.ActiveSchema()
	assert.NoError(err)
	assert.Equal(uint64(2), active.VersionNumber)
}

func TestGenesisInitializerRuns(t *testing.T) {
	assert := assert.New(t)

	genesis := []byte(`{
		"versionNumber": 1,
		"initializerTag": "genesis",
		"components": [{"componentID": "counter", "slotCount": 1}]
	}`)

	vm := &VM{}
	assert.NoError(vm.RegisterInitializer("genesis", func(store SlotStore, newRanges map[string]SlotRange) error {
		return store.SetSlot(newRanges["counter"].Start, BytesToValue([]byte{7}))
	}))
	assert.NoError(vm.Initialize(memdb.New(), genesis))

	value, allocated, err := vm.Store().GetSlot(0)
	assert.NoError(err)
	assert.True(allocated)
	assert.Equal(BytesToValue([]byte{7}), value)
}

func TestService(t *testing.T) {
	assert := assert.New(t)
	vm, err := newTestVM()
	assert.NoError(err)
	service := Service{vm}

	// Unallocated read
	getReply := GetSlotReply{}
	assert.NoError(service.GetSlot(nil, &GetSlotArgs{Slot: 3}, &getReply))
	assert.False(getReply.Allocated)

	// Write then read back
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, []byte{1, 2, 3})
	assert.NoError(err)
	setReply := SetSlotReply{}
	assert.NoError(service.SetSlot(nil, &SetSlotArgs{Slot: 3, Value: encoded}, &setReply))
	assert.True(setReply.Success)

	getReply = GetSlotReply{}
	assert.NoError(service.GetSlot(nil, &GetSlotArgs{Slot: 3}, &getReply))
	assert.True(getReply.Allocated)
	decoded, err := formatting.Decode(formatting.Hex, getReply.Value)
	assert.NoError(err)
	assert.Equal(BytesToValue([]byte{1, 2, 3}), BytesToValue(decoded))
}

func TestServiceGetSchema(t *testing.T) {
	assert := assert.New(t)
	vm, err := newTestVM()
	assert.NoError(err)
	service := Service{vm}

	// Active schema when no version given
	reply := GetSchemaReply{}
	assert.NoError(service.GetSchema(nil, &GetSchemaArgs{}, &reply))
	assert.Equal(cjson.Uint64(1), reply.VersionNumber)
	assert.Equal(cjson.Uint64(6), reply.TotalSlots)
	assert.Equal(SlotRange{Start: 5, End: 6}, reply.Ranges["counter"])

	// Unknown version
	unknown := cjson.Uint64(42)
	assert.ErrorIs(service.GetSchema(nil, &GetSchemaArgs{VersionNumber: &unknown}, &GetSchemaReply{}), errNoSuchSchema)
}

func TestServiceUpgrade(t *testing.T) {
	assert := assert.New(t)
	vm, err := newTestVM()
	assert.NoError(err)
	service := Service{vm}

	// Rejected candidate: conflicts come back in the reply, not as an error
	badReply := UpgradeReply{}
	assert.NoError(service.Upgrade(nil, &UpgradeArgs{Schema: SchemaDefinition{
		VersionNumber: 2,
		Components: []ComponentLayout{
			{ComponentID: "erc721base", SlotCount: 5},
			{ComponentID: "escrow", SlotCount: 3},
			{ComponentID: "counter", SlotCount: 1},
		},
	}}, &badReply))
	assert.False(badReply.Accepted)
	assert.NotEmpty(badReply.Conflicts)

	// Accepted candidate
	goodReply := UpgradeReply{}
	assert.NoError(service.Upgrade(nil, &UpgradeArgs{Schema: SchemaDefinition{
		VersionNumber: 2,
		Components: []ComponentLayout{
			{ComponentID: "erc721base", SlotCount: 5},
			{ComponentID: "counter", SlotCount: 1},
			{ComponentID: "escrow", SlotCount: 3},
		},
	}}, &goodReply))
	assert.True(goodReply.Accepted)
	assert.Empty(goodReply.Conflicts)

	// Both schemas stay queryable by version afterwards
	v1 := cjson.Uint64(1)
	reply := GetSchemaReply{}
	assert.NoError(service.GetSchema(nil, &GetSchemaArgs{VersionNumber: &v1}, &reply))
	assert.Equal(cjson.Uint64(1), reply.VersionNumber)
}

func TestCreateHandlers(t *testing.T) {
	assert := assert.New(t)
	vm, err := newTestVM()
	assert.NoError(err)

	handlers, err := vm.CreateHandlers()
	assert.NoError(err)
	assert.Contains(handlers, "")

	staticHandlers, err := vm.CreateStaticHandlers()
	assert.NoError(err)
	assert.Contains(staticHandlers, "")
}
