package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/zklogin/core"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcReply struct {
	result any
	code   int
	msg    string
}

// fakeNode answers JSON-RPC calls from a method table and records the requests
type fakeNode struct {
	mu       sync.Mutex
	replies  map[string]rpcReply
	requests []rpcRequest
}

func (f *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply, ok := f.replies[req.Method]
	f.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch {
	case !ok:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	case reply.code != 0:
		resp["error"] = map[string]any{"code": reply.code, "message": reply.msg}
	default:
		resp["result"] = reply.result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeNode) last() rpcRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, replies map[string]rpcReply) (*SuiClient, *fakeNode) {
	node := &fakeNode{replies: replies}
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), Config{URL: srv.URL, RPS: 100, Burst: 10})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, node
}

func TestUint64AcceptsStringsAndNumbers(t *testing.T) {
	var v struct {
		A Uint64 `json:"a"`
		B Uint64 `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"18446744073709551615","b":7}`), &v))
	assert.Equal(t, Uint64(18446744073709551615), v.A)
	assert.Equal(t, Uint64(7), v.B)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"x"}`), &v))
}

func TestDialRequiresURL(t *testing.T) {
	_, err := Dial(context.Background(), Config{})
	assert.ErrorIs(t, err, core.ErrMissingConfig)
}

func TestLatestEpoch(t *testing.T) {
	c, _ := newTestClient(t, map[string]rpcReply{
		"suix_getLatestSuiSystemState": {result: map[string]any{"epoch": "100", "protocolVersion": "1"}},
	})
	epoch, err := c.LatestEpoch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), epoch)
}

func TestLatestEpochSurfacesErrors(t *testing.T) {
	c, _ := newTestClient(t, map[string]rpcReply{})
	_, err := c.LatestEpoch(context.Background())
	assert.Error(t, err)
}

func TestGasPriceAndCoins(t *testing.T) {
	c, node := newTestClient(t, map[string]rpcReply{
		"suix_getReferenceGasPrice": {result: "750"},
		"suix_getCoins": {result: map[string]any{
			"data": []map[string]any{{
				"coinType":     SuiCoinType,
				"coinObjectId": "0x3",
				"version":      "12",
				"digest":       "11111111111111111111111111111111",
				"balance":      "5000000000",
			}},
			"hasNextPage": false,
		}},
	})
	ctx := context.Background()

	price, err := c.ReferenceGasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), price)

	coins, err := c.GasCoins(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, coins, 1)
	assert.Equal(t, core.Coin{ObjectID: "0x3", Version: 12, Digest: "11111111111111111111111111111111", Balance: 5_000_000_000}, coins[0])

	req := node.last()
	assert.Equal(t, "suix_getCoins", req.Method)
	assert.JSONEq(t, `"0xabc"`, string(req.Params[0]))
	assert.JSONEq(t, `"0x2::sui::SUI"`, string(req.Params[1]))
}

func TestBalanceAndObjects(t *testing.T) {
	c, node := newTestClient(t, map[string]rpcReply{
		"suix_getBalance": {result: map[string]any{"coinType": SuiCoinType, "coinObjectCount": 2, "totalBalance": "1500000000"}},
		"suix_getOwnedObjects": {result: map[string]any{
			"data": []map[string]any{
				{"data": map[string]any{
					"objectId": "0x9",
					"version":  "1",
					"digest":   "d",
					"type":     "0x1::nft::NFT",
					"display":  map[string]any{"data": map[string]string{"name": "Cat"}},
				}},
				{"error": map[string]any{"code": "deleted"}},
			},
			"hasNextPage": false,
		}},
	})
	ctx := context.Background()

	bal, err := c.Balance(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 2, bal.Objects)
	assert.Equal(t, "1.5", bal.SUI().String())

	objs, err := c.OwnedObjects(ctx, "0xabc", "0x1::nft::NFT", 10)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "Cat", objs[0].Display["name"])

	req := node.last()
	assert.JSONEq(t, `{"filter":{"StructType":"0x1::nft::NFT"},"options":{"showType":true,"showDisplay":true}}`, string(req.Params[1]))
}

func TestExecuteTransaction(t *testing.T) {
	c, node := newTestClient(t, map[string]rpcReply{
		"sui_executeTransactionBlock": {result: map[string]any{
			"digest":  "Dig",
			"effects": map[string]any{"status": map[string]any{"status": "success"}},
		}},
	})

	res, err := c.ExecuteTransaction(context.Background(), []byte{1, 2, 3}, "sig")
	require.NoError(t, err)
	assert.Equal(t, "Dig", res.Digest)

	req := node.last()
	require.Len(t, req.Params, 4)
	assert.JSONEq(t, `"`+base64.StdEncoding.EncodeToString([]byte{1, 2, 3})+`"`, string(req.Params[0]))
	assert.JSONEq(t, `["sig"]`, string(req.Params[1]))
	assert.JSONEq(t, `{"showEffects":true}`, string(req.Params[2]))
	assert.JSONEq(t, `"WaitForLocalExecution"`, string(req.Params[3]))
}

func TestExecuteTransactionFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply rpcReply
		kind  core.SubmissionKind
	}{
		{"rejected", rpcReply{code: -32002, msg: "Invalid user signature"}, core.SubmissionRejected},
		{"insufficient", rpcReply{code: -32002, msg: "InsufficientCoinBalance"}, core.SubmissionInsufficient},
		{"effects failure", rpcReply{result: map[string]any{
			"digest":  "Dig",
			"effects": map[string]any{"status": map[string]any{"status": "failure", "error": "MoveAbort"}},
		}}, core.SubmissionRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, map[string]rpcReply{"sui_executeTransactionBlock": tc.reply})

			_, err := c.ExecuteTransaction(context.Background(), []byte{1}, "sig")
			var subErr *core.SubmissionError
			require.True(t, errors.As(err, &subErr), "got %v", err)
			assert.Equal(t, tc.kind, subErr.Kind)
		})
	}
}

func TestExecuteTransactionNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c, err := Dial(context.Background(), Config{URL: srv.URL})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ExecuteTransaction(context.Background(), []byte{1}, "sig")
	var subErr *core.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, core.SubmissionNetwork, subErr.Kind)
}
