// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package slotvm

import (
	"testing"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/stretchr/testify/assert"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

func TestComputeLayout(t *testing.T) {
	assert := assert.New(t)
	ss := CreateStaticService()

	reply := ComputeLayoutReply{}
	assert.NoError(ss.ComputeLayout(nil, &ComputeLayoutArgs{Schema: SchemaDefinition{
		VersionNumber: 1,
		Components: []ComponentLayout{
			{ComponentID: "erc721base", SlotCount: 5},
			{ComponentID: "counter", SlotCount: 1},
		},
	}}, &reply))

	assert.Equal(cjson.Uint64(6), reply.TotalSlots)
	assert.Equal(SlotRange{Start: 0, End: 5}, reply.Ranges["erc721base"])
	assert.Equal(SlotRange{Start: 5, End: 6}, reply.Ranges["counter"])

	// Duplicate components are a construction error, even offline
	err := ss.ComputeLayout(nil, &ComputeLayoutArgs{Schema: SchemaDefinition{
		VersionNumber: 1,
		Components: []ComponentLayout{
			{ComponentID: "counter", SlotCount: 1},
			{ComponentID: "counter", SlotCount: 1},
		},
	}}, &ComputeLayoutReply{})
	assert.ErrorIs(err, errDuplicateComponent)
}

func TestStaticEncodeDecode(t *testing.T) {
	assert := assert.New(t)
	ss := CreateStaticService()

	encodeReply := EncoderReply{}
	assert.NoError(ss.Encode(nil, &EncoderArgs{
		Data:     "owner",
		Encoding: formatting.Hex,
	}, &encodeReply))

	decodeReply := DecoderReply{}
	assert.NoError(ss.Decode(nil, &DecoderArgs{
		Bytes:    encodeReply.Bytes,
		Encoding: encodeReply.Encoding,
	}, &decodeReply))
	assert.Equal("owner", decodeReply.Data)
}
