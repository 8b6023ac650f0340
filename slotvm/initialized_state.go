// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"github.com/ava-labs/avalanchego/database"
)

const (
	IsInitializedKey byte = iota
)

var (
	isInitializedKey                  = []byte{IsInitializedKey}
	_                InitializedState = (*initializedState)(nil)
)

// InitializedState is a thin wrapper around a database tracking which
// initializers have already run: the store-level bootstrap marker plus a
// per-version marker that keeps an upgrade's one-time initializer from ever
// being invoked twice, even across restarts.
type InitializedState interface {
	IsInitialized() (bool, error)
	SetInitialized() error

	IsVersionInitialized(versionNumber uint64) (bool, error)
	SetVersionInitialized(versionNumber uint64) error
}

type initializedState struct {
	singletonDB database.Database
}

func NewInitializedState(db database.Database) InitializedState {
	return &initializedState{
		singletonDB: db,
	}
}

func (s *initializedState) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

func (s *initializedState) SetInitialized() error {
	return s.singletonDB.Put(isInitializedKey, nil)
}

func (s *initializedState) IsVersionInitialized(versionNumber uint64) (bool, error) {
	return s.singletonDB.Has(versionInitializedKey(versionNumber))
}

func (s *initializedState) SetVersionInitialized(versionNumber uint64) error {
	return s.singletonDB.Put(versionInitializedKey(versionNumber), nil)
}

func versionInitializedKey(versionNumber uint64) []byte {
	return append([]byte("init"), PackUint64(versionNumber)...)
}
