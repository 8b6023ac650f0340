// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	singletonStatePrefix = []byte("singleton")
	slotStatePrefix      = []byte("slot")
	schemaStatePrefix    = []byte("schema")

	_ State = &state{}
)

// State bundles the three sub-states of a store behind one versioned
// database. Writes only reach the underlying database on Commit; Abort
// discards everything staged since the last commit, which is what makes an
// upgrade (schema swap + initializer writes) a single atomic unit.
type State interface {
	InitializedState
	SlotStore
	SchemaState

	Commit() error
	Abort()
	Close() error
}

type state struct {
	InitializedState
	SlotStore
	SchemaState

	baseDB *versiondb.Database
}

func NewState(db database.Database) State {
	// create a new baseDB
	baseDB := versiondb.New(db)

	// create prefixed sub databases from baseDB
	singletonDB := prefixdb.New(singletonStatePrefix, baseDB)
	slotDB := prefixdb.New(slotStatePrefix, baseDB)
	schemaDB := prefixdb.New(schemaStatePrefix, baseDB)

	// return state with created sub state components
	return &state{
		InitializedState: NewInitializedState(singletonDB),
		SlotStore:        NewSlotStore(slotDB, singletonDB),
		SchemaState:      NewSchemaState(schemaDB, singletonDB),
		baseDB:           baseDB,
	}
}

// Commit commits pending operations to baseDB
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards pending operations and drops the sub-state caches so no
// rolled-back write can be served from memory.
func (s *state) Abort() {
	s.baseDB.Abort()
	s.ClearCache()
}

// ClearCache drops every sub-state cache. Both SlotStore and SchemaState
// declare ClearCache, so state must pick the promotion explicitly.
func (s *state) ClearCache() {
	s.SlotStore.ClearCache()
	s.SchemaState.ClearCache()
}

// Close closes the underlying base database
func (s *state) Close() error {
	return s.baseDB.Close()
}
