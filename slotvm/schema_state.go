// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"errors"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
)

const (
	schemaCacheSize = 64
)

var (
	errSchemaWrongVersion = errors.New("wrong codec version")

	activeVersionKey = []byte("active")

	_ SchemaState = &schemaState{}
)

// SchemaState persists every committed SchemaVersion, keyed by version
// number, plus the pointer to the currently active one.
type SchemaState interface {
	GetSchema(versionNumber uint64) (*SchemaVersion, error)
	PutSchema(schema *SchemaVersion) error

	GetActiveVersion() (uint64, error)
	SetActiveVersion(versionNumber uint64) error

	ClearCache()
}

type schemaState struct {
	schemaCache cache.Cacher
	schemaDB    database.Database

	// singletonDB holds the active-version pointer
	singletonDB database.Database
}

func NewSchemaState(schemaDB database.Database, singletonDB database.Database) SchemaState {
	return &schemaState{
		schemaCache: &cache.LRU{Size: schemaCacheSize},
		schemaDB:    schemaDB,
		singletonDB: singletonDB,
	}
}

func (s *schemaState) GetSchema(versionNumber uint64) (*SchemaVersion, error) {
	if schemaIntf, ok := s.schemaCache.Get(versionNumber); ok {
		return schemaIntf.(*SchemaVersion), nil
	}

	schemaBytes, err := s.schemaDB.Get(PackUint64(versionNumber))
	if err != nil {
		return nil, err
	}

	schema := SchemaVersion{}
	parsedVersion, err := Codec.Unmarshal(schemaBytes, &schema)
	if err != nil {
		return nil, err
	}
	if parsedVersion != CodecVersion {
		return nil, errSchemaWrongVersion
	}

	s.schemaCache.Put(versionNumber, &schema)
	return &schema, nil
}

func (s *schemaState) PutSchema(schema *SchemaVersion) error {
	bytes, err := Codec.Marshal(CodecVersion, schema)
	if err != nil {
		return err
	}

	s.schemaCache.Put(schema.VersionNumber, schema)
	return s.schemaDB.Put(PackUint64(schema.VersionNumber), bytes)
}

func (s *schemaState) GetActiveVersion() (uint64, error) {
	raw, err := s.singletonDB.Get(activeVersionKey)
	if err != nil {
		return 0, err
	}
	return UnpackUint64(raw)
}

func (s *schemaState) SetActiveVersion(versionNumber uint64) error {
	return s.singletonDB.Put(activeVersionKey, PackUint64(versionNumber))
}

func (s *schemaState) ClearCache() {
	s.schemaCache.Flush()
}
