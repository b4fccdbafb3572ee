// Package chain reads markets, coins and positions from a Sui GraphQL
// indexer and dev-inspects Move calls against a fullnode.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nereus-labs/nereus/internal/domain"
	"github.com/nereus-labs/nereus/internal/sui"
)

// Config holds the endpoints and on-chain identifiers the client needs.
type Config struct {
	GraphQLURL string
	RPCURL     string
	PackageID  string
	USDCType   string
	// InspectSender is the sender used for dev-inspect calls. Any address
	// works since nothing is executed.
	InspectSender string
	Timeout       time.Duration
	PageSize      int
}

// Client talks to the GraphQL indexer and the JSON-RPC fullnode.
type Client struct {
	graphqlURL    string
	rpcURL        string
	pkg           sui.Address
	usdcType      string
	inspectSender sui.Address
	pageSize      int
	httpClient    *http.Client
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	pkg, err := sui.ParseAddress(cfg.PackageID)
	if err != nil {
		return nil, fmt.Errorf("chain: package id: %w", err)
	}
	sender := sui.Address{}
	if strings.TrimSpace(cfg.InspectSender) != "" {
		sender, err = sui.ParseAddress(cfg.InspectSender)
		if err != nil {
			return nil, fmt.Errorf("chain: inspect sender: %w", err)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}
	return &Client{
		graphqlURL:    cfg.GraphQLURL,
		rpcURL:        cfg.RPCURL,
		pkg:           pkg,
		usdcType:      cfg.USDCType,
		inspectSender: sender,
		pageSize:      pageSize,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

// MarketType is the fully qualified Move type of market objects.
func (c *Client) MarketType() string {
	return c.pkg.String() + "::market::Market"
}

// PositionType is the Move type of the position token for side.
func (c *Client) PositionType(side domain.Side) string {
	return c.pkg.String() + "::market::" + side.PositionType()
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// doQuery executes a GraphQL query and returns the raw "data" field.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	body, err := c.post(ctx, c.graphqlURL, jsonBody)
	if err != nil {
		return nil, err
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("%w: graphql response: %v", domain.ErrDecode, err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql error: %s", domain.ErrUpstream, gqlResp.Errors[0].Message)
	}
	return gqlResp.Data, nil
}

// post sends a JSON body and returns the response body of a 200 reply.
func (c *Client) post(ctx context.Context, url string, jsonBody []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstream, resp.StatusCode, string(body))
	}
	return body, nil
}
