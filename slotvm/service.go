// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"errors"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

var errNoSuchSchema = errors.New("no schema committed at that version")

// Service is the API service for this VM
type Service struct{ vm *VM }

// GetSlotArgs are the arguments to GetSlot
type GetSlotArgs struct {
	Slot cjson.Uint64 `json:"slot"`
}

// GetSlotReply is the reply from GetSlot
type GetSlotReply struct {
	// Value is hex-encoded; empty when the slot is unallocated
	Value     string `json:"value"`
	Allocated bool   `json:"allocated"`
}

// GetSlot returns the value at [args.Slot]. Reading an unallocated slot is
// not an error; the reply says so explicitly.
func (s *Service) GetSlot(_ *http.Request, args *GetSlotArgs, reply *GetSlotReply) error {
	value, allocated, err := s.vm.state.GetSlot(uint64(args.Slot))
	if err != nil {
		return err
	}
	reply.Allocated = allocated
	if !allocated {
		return nil
	}
	reply.Value, err = formatting.EncodeWithChecksum(formatting.Hex, value[:])
	return err
}

// SetSlotArgs are the arguments to SetSlot
type SetSlotArgs struct {
	Slot cjson.Uint64 `json:"slot"`
	// Value is hex-encoded and at most [ValueLen] bytes long once decoded
	Value string `json:"value"`
}

// SetSlotReply is the reply from SetSlot
type SetSlotReply struct {
	Success bool `json:"success"`
}

// SetSlot writes [args.Value] at [args.Slot] and flushes it. The write is
// serialized with any in-flight upgrade.
func (s *Service) SetSlot(_ *http.Request, args *SetSlotArgs, reply *SetSlotReply) error {
	bytes, err := formatting.Decode(formatting.Hex, args.Value)
	if err != nil {
		return err
	}
	if err := s.vm.PutSlot(uint64(args.Slot), BytesToValue(bytes)); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// GetSchemaArgs are the arguments to GetSchema
type GetSchemaArgs struct {
	// VersionNumber of the schema to fetch.
	// If left blank, gets the active schema
	VersionNumber *cjson.Uint64 `json:"versionNumber"`
}

// GetSchemaReply is the reply from GetSchema
type GetSchemaReply struct {
	VersionNumber  cjson.Uint64         `json:"versionNumber"`
	InitializerTag string               `json:"initializerTag"`
	Components     []ComponentLayout    `json:"components"`
	Ranges         map[string]SlotRange `json:"ranges"`
	TotalSlots     cjson.Uint64         `json:"totalSlots"`
}

// GetSchema gets the schema committed at [args.VersionNumber], or the
// active schema if no version is given, along with its computed ranges.
func (s *Service) GetSchema(_ *http.Request, args *GetSchemaArgs, reply *GetSchemaReply) error {
	var (
		schema *SchemaVersion
		err    error
	)
	if args.VersionNumber == nil {
		schema, err = s.vm.ActiveSchema()
		if err != nil {
			return err
		}
	} else {
		schema, err = s.vm.state.GetSchema(uint64(*args.VersionNumber))
		if err != nil {
			return errNoSuchSchema
		}
	}

	assignment := schema.Assignment()
	ranges := make(map[string]SlotRange, len(schema.Components))
	for _, id := range assignment.Components() {
		r, _ := assignment.Range(id)
		ranges[id] = r
	}

	reply.VersionNumber = cjson.Uint64(schema.VersionNumber)
	reply.InitializerTag = schema.InitializerTag
	reply.Components = schema.Definition().Components
	reply.Ranges = ranges
	reply.TotalSlots = cjson.Uint64(assignment.TotalSlots())
	return nil
}

// UpgradeArgs are the arguments to Upgrade
type UpgradeArgs struct {
	Schema SchemaDefinition `json:"schema"`
}

// UpgradeReply is the reply from Upgrade
type UpgradeReply struct {
	Accepted  bool       `json:"accepted"`
	Conflicts []Conflict `json:"conflicts"`
}

// Upgrade submits a candidate schema. A rejected candidate is a normal
// reply carrying the full conflict list; an error means the attempt failed
// and was rolled back.
func (s *Service) Upgrade(_ *http.Request, args *UpgradeArgs, reply *UpgradeReply) error {
	candidate, err := NewSchemaVersion(args.Schema.VersionNumber, args.Schema.InitializerTag, args.Schema.Components)
	if err != nil {
		return err
	}

	report, err := s.vm.Upgrade(candidate)
	if err != nil {
		return err
	}

	reply.Accepted = report.Accepted
	reply.Conflicts = report.Conflicts
	return nil
}
