package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-storefront/internal/cosmwasm/stub"
	"nft-storefront/internal/domain"
)

var connected = &domain.Session{ID: "s1", AccountAddress: "xion1user"}

func descriptors(n int) []domain.CollectionDescriptor {
	out := make([]domain.CollectionDescriptor, n)
	for i := range out {
		out[i] = domain.CollectionDescriptor{
			ID:              fmt.Sprintf("col-%d", i),
			ContractAddress: fmt.Sprintf("xion1contract%d", i),
		}
	}
	return out
}

func ids(list []domain.EnrichedCollection) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func descriptorIDs(list []domain.CollectionDescriptor) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestAggregator_Scenario(t *testing.T) {
	client := stub.NewQueryClient().
		Respond("x1", kindInfo, `{"name":"A info"}`).
		Respond("x1", kindRoyalty, `{"royalty_payments":true}`).
		Respond("x1", kindMetadata, `{"name":"A meta"}`).
		Respond("x2", kindInfo, `{"name":"B info"}`).
		Fail("x2", kindRoyalty, errQuery).
		Fail("x2", kindMetadata, errQuery)

	agg := NewAggregator(Options{
		Collections: []domain.CollectionDescriptor{
			{ID: "a", ContractAddress: "x1"},
			{ID: "b", ContractAddress: "x2"},
		},
		Client: client,
	})

	result, err := agg.Aggregate(context.Background(), connected)
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "a", result[0].ID)
	assert.True(t, result[0].HasRoyaltyInfo)
	assert.JSONEq(t, `{"name":"A meta"}`, string(result[0].Metadata))

	assert.Equal(t, "b", result[1].ID)
	assert.False(t, result[1].HasRoyaltyInfo)
	assert.JSONEq(t, `{"name":"B info"}`, string(result[1].Metadata))
}

func TestAggregator_PreservesOrderAndCardinality(t *testing.T) {
	cols := descriptors(8)

	allOK := stub.NewQueryClient()
	allFail := stub.NewQueryClient()
	for _, c := range cols {
		allOK.Respond(c.ContractAddress, kindInfo, `{"name":"`+c.ID+`"}`)
		allOK.Respond(c.ContractAddress, kindRoyalty, `{}`)
		allOK.Respond(c.ContractAddress, kindMetadata, `{}`)
		allFail.Fail(c.ContractAddress, kindInfo, errQuery)
	}

	tests := []struct {
		name   string
		client *stub.QueryClient
	}{
		{"all succeed", allOK},
		{"all fail", allFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(Options{Collections: cols, Client: tt.client, Concurrency: 3})

			result, err := agg.Aggregate(context.Background(), connected)
			require.NoError(t, err)
			assert.Equal(t, descriptorIDs(cols), ids(result))
		})
	}
}

func TestAggregator_AllFailDegradesEveryItem(t *testing.T) {
	cols := descriptors(3)
	client := stub.NewQueryClient()
	for _, c := range cols {
		client.Fail(c.ContractAddress, kindInfo, errQuery)
	}

	result, err := NewAggregator(Options{Collections: cols, Client: client}).Aggregate(context.Background(), connected)
	require.NoError(t, err)

	for i, c := range cols {
		assert.Equal(t, domain.Plain(c), result[i])
	}
}

func TestAggregator_NoAccountIssuesNoQueries(t *testing.T) {
	client := stub.NewQueryClient()
	agg := NewAggregator(Options{Collections: descriptors(4), Client: client})

	for _, session := range []*domain.Session{nil, {ID: "s1"}} {
		result, err := agg.Aggregate(context.Background(), session)
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	}
	assert.Equal(t, 0, client.CallCount())
}

func TestAggregator_NoClient(t *testing.T) {
	agg := NewAggregator(Options{Collections: descriptors(2)})

	result, err := agg.Aggregate(context.Background(), connected)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestAggregator_CanceledContextIsAggregateFailure(t *testing.T) {
	client := stub.NewQueryClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(Options{Collections: descriptors(2), Client: client}).Aggregate(ctx, connected)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAggregationFailed))
	assert.True(t, errors.Is(err, context.Canceled))
}

// barrierClient blocks contract_info queries until n of them are in flight.
type barrierClient struct {
	n       int32
	arrived atomic.Int32
	release chan struct{}
	once    sync.Once
	delays  map[string]time.Duration
}

func newBarrierClient(n int) *barrierClient {
	return &barrierClient{n: int32(n), release: make(chan struct{})}
}

func (c *barrierClient) QuerySmartContract(ctx context.Context, contract string, query any) (json.RawMessage, error) {
	if c.arrived.Add(1) >= c.n {
		c.once.Do(func() { close(c.release) })
	}
	select {
	case <-c.release:
	case <-time.After(2 * time.Second):
		return nil, errors.New("enrichments did not run concurrently")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if d := c.delays[contract]; d > 0 {
		time.Sleep(d)
	}
	return json.RawMessage(`{"contract":"` + contract + `"}`), nil
}

func TestAggregator_RunsConcurrently(t *testing.T) {
	cols := descriptors(5)
	client := newBarrierClient(len(cols))
	// Earlier collections finish last.
	client.delays = map[string]time.Duration{}
	for i, c := range cols {
		client.delays[c.ContractAddress] = time.Duration(len(cols)-i) * 5 * time.Millisecond
	}

	result, err := NewAggregator(Options{Collections: cols, Client: client}).Aggregate(context.Background(), connected)
	require.NoError(t, err)

	assert.Equal(t, descriptorIDs(cols), ids(result))
	for i, c := range cols {
		assert.True(t, result[i].Enriched(), "collection %s not enriched", c.ID)
		assert.JSONEq(t, `{"contract":"`+c.ContractAddress+`"}`, string(result[i].ContractInfo))
	}
}
