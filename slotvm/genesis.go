// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"encoding/json"
	"errors"
)

var errEmptySchemaDefinition = errors.New("empty schema definition")

// SchemaDefinition is the external, JSON form of a schema: what the
// deployment layer submits at genesis and on each upgrade attempt.
type SchemaDefinition struct {
	VersionNumber  uint64            `json:"versionNumber"`
	InitializerTag string            `json:"initializerTag"`
	Components     []ComponentLayout `json:"components"`
}

// ParseSchemaDefinition decodes [raw] and builds the immutable
// SchemaVersion it describes, enforcing the duplicate-component rule.
func ParseSchemaDefinition(raw []byte) (*SchemaVersion, error) {
	if len(raw) == 0 {
		return nil, errEmptySchemaDefinition
	}

	def := SchemaDefinition{}
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	return NewSchemaVersion(def.VersionNumber, def.InitializerTag, def.Components)
}

// Definition returns the external form of [s].
func (s *SchemaVersion) Definition() SchemaDefinition {
	components := make([]ComponentLayout, len(s.Components))
	copy(components, s.Components)
	return SchemaDefinition{
		VersionNumber:  s.VersionNumber,
		InitializerTag: s.InitializerTag,
		Components:     components,
	}
}
