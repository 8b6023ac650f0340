// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

// StaticService defines the static API for the slot vm: layout computation
// and value encoding helpers that need no backing store.
type StaticService struct{}

// CreateStaticService ...
func CreateStaticService() *StaticService {
	return &StaticService{}
}

// ComputeLayoutArgs are arguments for ComputeLayout
type ComputeLayoutArgs struct {
	Schema SchemaDefinition `json:"schema"`
}

// ComputeLayoutReply is the reply from ComputeLayout
type ComputeLayoutReply struct {
	Ranges     map[string]SlotRange `json:"ranges"`
	TotalSlots cjson.Uint64         `json:"totalSlots"`
}

// ComputeLayout returns the slot ranges a schema definition assigns, without
// committing anything anywhere.
func (ss *StaticService) ComputeLayout(_ *http.Request, args *ComputeLayoutArgs, reply *ComputeLayoutReply) error {
	schema, err := NewSchemaVersion(args.Schema.VersionNumber, args.Schema.InitializerTag, args.Schema.Components)
	if err != nil {
		return err
	}

	assignment := schema.Assignment()
	reply.Ranges = make(map[string]SlotRange, len(schema.Components))
	for _, id := range assignment.Components() {
		r, _ := assignment.Range(id)
		reply.Ranges[id] = r
	}
	reply.TotalSlots = cjson.Uint64(assignment.TotalSlots())
	return nil
}

// EncoderArgs are arguments for Encode
type EncoderArgs struct {
	Data     string              `json:"data"`
	Encoding formatting.Encoding `json:"encoding"`
}

// EncoderReply is the reply from Encoder
type EncoderReply struct {
	Bytes    string              `json:"bytes"`
	Encoding formatting.Encoding `json:"encoding"`
}

// Encoder returns the encoded data
func (ss *StaticService) Encode(_ *http.Request, args *EncoderArgs, reply *EncoderReply) error {
	bytes, err := formatting.EncodeWithChecksum(args.Encoding, []byte(args.Data))
	if err != nil {
		return fmt.Errorf("couldn't encode data as string: %s", err)
	}
	reply.Bytes = bytes
	reply.Encoding = args.Encoding
	return nil
}

// DecoderArgs are arguments for Decode
type DecoderArgs struct {
	Bytes    string              `json:"bytes"`
	Encoding formatting.Encoding `json:"encoding"`
}

// DecoderReply is the reply from Decoder
type DecoderReply struct {
	Data     string              `json:"data"`
	Encoding formatting.Encoding `json:"encoding"`
}

// Decoder returns the Decoded data
func (ss *StaticService) Decode(_ *http.Request, args *DecoderArgs, reply *DecoderReply) error {
	bytes, err := formatting.Decode(args.Encoding, args.Bytes)
	if err != nil {
		return fmt.Errorf("couldn't Decode data as string: %s", err)
	}
	reply.Data = string(bytes)
	reply.Encoding = args.Encoding
	return nil
}
