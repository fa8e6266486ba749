package stub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"nft-storefront/internal/cosmwasm"
)

// ErrNoResponse is returned when no response is registered for a query.
var ErrNoResponse = errors.New("no stub response")

// QueryClient implements cosmwasm.QueryClient for testing.
// Responses are keyed by contract address and query kind.
type QueryClient struct {
	mu        sync.Mutex
	responses map[string]json.RawMessage
	failures  map[string]error
	calls     []Call
}

// Call records one QuerySmartContract invocation.
type Call struct {
	ContractAddress string
	Kind            string
}

// NewQueryClient creates a new stub query client.
func NewQueryClient() *QueryClient {
	return &QueryClient{
		responses: make(map[string]json.RawMessage),
		failures:  make(map[string]error),
	}
}

func key(contract, kind string) string {
	return contract + "|" + kind
}

// Respond registers a JSON result for (contract, kind).
func (c *QueryClient) Respond(contract, kind, result string) *QueryClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[key(contract, kind)] = json.RawMessage(result)
	delete(c.failures, key(contract, kind))
	return c
}

// Fail registers an error for (contract, kind).
func (c *QueryClient) Fail(contract, kind string, err error) *QueryClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[key(contract, kind)] = err
	delete(c.responses, key(contract, kind))
	return c
}

// QuerySmartContract returns the registered response for the query.
func (c *QueryClient) QuerySmartContract(ctx context.Context, contractAddress string, query any) (json.RawMessage, error) {
	kind := cosmwasm.QueryKind(query)

	c.mu.Lock()
	c.calls = append(c.calls, Call{ContractAddress: contractAddress, Kind: kind})
	result, ok := c.responses[key(contractAddress, kind)]
	failure := c.failures[key(contractAddress, kind)]
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, failure
	}
	if !ok {
		return nil, ErrNoResponse
	}
	return result, nil
}

// Calls returns a copy of all recorded calls.
func (c *QueryClient) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns the number of recorded calls.
func (c *QueryClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

var _ cosmwasm.QueryClient = (*QueryClient)(nil)
