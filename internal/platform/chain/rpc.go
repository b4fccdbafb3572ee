package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/sui"
)

var rpcID atomic.Int64

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call invokes a fullnode JSON-RPC method and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      rpcID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	raw, err := c.post(ctx, c.rpcURL, body)
	if err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("%w: rpc response: %v", domain.ErrDecode, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: rpc error %d: %s", domain.ErrUpstream, resp.Error.Code, resp.Error.Message)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: %s result: %v", domain.ErrDecode, method, err)
	}
	return nil
}

// returnValue is one [bytes, type] pair from a dev-inspect result.
type returnValue struct {
	Bytes []byte
	Type  string
}

func (r *returnValue) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("return value has %d elements", len(pair))
	}
	// The fullnode renders bytes as an array of numbers, not base64.
	var nums []uint8
	var ints []int
	if err := json.Unmarshal(pair[0], &ints); err != nil {
		return err
	}
	for _, n := range ints {
		if n < 0 || n > 255 {
			return fmt.Errorf("byte out of range: %d", n)
		}
		nums = append(nums, uint8(n))
	}
	r.Bytes = nums
	return json.Unmarshal(pair[1], &r.Type)
}

type devInspectResult struct {
	Error   string `json:"error"`
	Effects struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	Results []struct {
		ReturnValues []returnValue `json:"returnValues"`
	} `json:"results"`
}

// DevInspect runs tx without executing it and returns the return values of
// each command.
func (c *Client) DevInspect(ctx context.Context, tx *sui.Transaction) ([][]returnValue, error) {
	kind, err := tx.KindBytes()
	if err != nil {
		return nil, fmt.Errorf("chain: dev inspect: %w", err)
	}

	var res devInspectResult
	err = c.call(ctx, "sui_devInspectTransactionBlock", &res,
		c.inspectSender.String(), base64.StdEncoding.EncodeToString(kind), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: dev inspect: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("chain: dev inspect: %w: %s", domain.ErrUpstream, res.Error)
	}
	if s := res.Effects.Status.Status; s != "" && s != "success" {
		return nil, fmt.Errorf("chain: dev inspect: %w: %s %s", domain.ErrUpstream, s, res.Effects.Status.Error)
	}

	out := make([][]returnValue, len(res.Results))
	for i, r := range res.Results {
		out[i] = r.ReturnValues
	}
	return out, nil
}
