// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/slotvm/slotvm"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

// Client defines slotvm client operations.
type Client interface {
	// GetSlot fetches the value at a slot; the bool is false for an
	// unallocated slot
	GetSlot(ctx context.Context, slot uint64) ([]byte, bool, error)

	// SetSlot writes a value (at most slotvm.ValueLen bytes) to a slot
	SetSlot(ctx context.Context, slot uint64, value []byte) (bool, error)

	// GetSchema fetches the schema at [versionNumber], or the active
	// schema when nil, with its computed slot ranges
	GetSchema(ctx context.Context, versionNumber *uint64) (*slotvm.GetSchemaReply, error)

	// Upgrade submits a candidate schema definition and returns the
	// migration outcome
	Upgrade(ctx context.Context, schema slotvm.SchemaDefinition) (*slotvm.UpgradeReply, error)
}

// New creates a new client object talking to the service mounted at [uri].
func New(uri string) Client {
	return &client{
		uri:  uri,
		http: resty.New(),
	}
}

type client struct {
	uri  string
	http *resty.Client
}

type jsonRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Method  string         `json:"method"`
	Params  [1]interface{} `json:"params"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type jsonRPCResponse struct {
	Error  *jsonRPCError   `json:"error,omitempty"`
	Result json.RawMessage `json:"result"`
}

// call posts one JSON-RPC 2.0 request and decodes the result into [reply].
func (cli *client) call(ctx context.Context, method string, args interface{}, reply interface{}) error {
	req := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  fmt.Sprintf("%s.%s", slotvm.Name, method),
	}
	req.Params[0] = args

	resp := jsonRPCResponse{}
	httpResp, err := cli.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&req).
		SetResult(&resp).
		Post(cli.uri)
	if err != nil {
		return err
	}
	if httpResp.IsError() {
		return fmt.Errorf("%s returned status %s", method, httpResp.Status())
	}
	if resp.Error != nil {
		return fmt.Errorf("%s failed: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
	}
	return json.Unmarshal(resp.Result, reply)
}

func (cli *client) GetSlot(ctx context.Context, slot uint64) ([]byte, bool, error) {
	resp := new(slotvm.GetSlotReply)
	err := cli.call(ctx, "getSlot", &slotvm.GetSlotArgs{Slot: cjson.Uint64(slot)}, resp)
	if err != nil {
		return nil, false, err
	}
	if !resp.Allocated {
		return nil, false, nil
	}
	bytes, err := formatting.Decode(formatting.Hex, resp.Value)
	if err != nil {
		return nil, false, err
	}
	return bytes, true, nil
}

func (cli *client) SetSlot(ctx context.Context, slot uint64, value []byte) (bool, error) {
	encoded, err := formatting.EncodeWithChecksum(formatting.Hex, value)
	if err != nil {
		return false, err
	}

	resp := new(slotvm.SetSlotReply)
	err = cli.call(ctx, "setSlot", &slotvm.SetSlotArgs{
		Slot:  cjson.Uint64(slot),
		Value: encoded,
	}, resp)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (cli *client) GetSchema(ctx context.Context, versionNumber *uint64) (*slotvm.GetSchemaReply, error) {
	args := &slotvm.GetSchemaArgs{}
	if versionNumber != nil {
		v := cjson.Uint64(*versionNumber)
		args.VersionNumber = &v
	}

	resp := new(slotvm.GetSchemaReply)
	if err := cli.call(ctx, "getSchema", args, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) Upgrade(ctx context.Context, schema slotvm.SchemaDefinition) (*slotvm.UpgradeReply, error) {
	resp := new(slotvm.UpgradeReply)
	if err := cli.call(ctx, "upgrade", &slotvm.UpgradeArgs{Schema: schema}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
