package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcHandler answers JSON-RPC requests with canned results per method.
type rpcHandler struct {
	results map[string]func(params []interface{}) interface{}
	calls   map[string]*atomic.Int64
}

func newRPCHandler() *rpcHandler {
	return &rpcHandler{
		results: make(map[string]func([]interface{}) interface{}),
		calls:   make(map[string]*atomic.Int64),
	}
}

func (h *rpcHandler) on(method string, fn func(params []interface{}) interface{}) {
	h.results[method] = fn
	h.calls[method] = &atomic.Int64{}
}

func (h *rpcHandler) count(method string) int64 {
	c, ok := h.calls[method]
	if !ok {
		return 0
	}
	return c.Load()
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fn, ok := h.results[req.Method]
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]interface{}{"code": -32601, "message": "method not found"},
		})
		return
	}
	h.calls[req.Method].Add(1)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0", "id": req.ID, "result": fn(req.Params),
	})
}

func TestClientChainID(t *testing.T) {
	h := newRPCHandler()
	h.on("eth_chainId", func([]interface{}) interface{} { return "0x7a69" })
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := NewClient(srv.URL)
	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(31337), id.Int64())
}

func TestClientBalanceAt(t *testing.T) {
	h := newRPCHandler()
	h.on("eth_getBalance", func(params []interface{}) interface{} {
		if params[0] == "0xrich" {
			return "0xde0b6b3a7640000"
		}
		return "0x0"
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := NewClient(srv.URL)

	balance, err := client.BalanceAt(context.Background(), "0xrich")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())

	balance, err = client.BalanceAt(context.Background(), "0xbroke")
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())
}

func TestClientFallsBackToSecondaryURL(t *testing.T) {
	h := newRPCHandler()
	h.on("eth_chainId", func([]interface{}) interface{} { return "0x1" })
	srv := httptest.NewServer(h)
	defer srv.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()

	client := NewClient(dead.URL, srv.URL)
	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Int64())
}

func TestClientAllEndpointsDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	dead.Close()

	client := NewClient(dead.URL)
	_, err := client.ChainID(context.Background())
	assert.ErrorIs(t, err, ErrRPCFailed)
}

func TestClientRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]interface{}{"code": -32000, "message": "out of gas"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.ChainID(context.Background())
	require.ErrorIs(t, err, ErrRPCFailed)
	assert.Contains(t, err.Error(), "out of gas")
}

func TestClientDeploy(t *testing.T) {
	var receiptPolls atomic.Int64
	h := newRPCHandler()
	h.on("eth_sendTransaction", func([]interface{}) interface{} { return "0xhash1" })
	h.on("eth_getTransactionReceipt", func([]interface{}) interface{} {
		// First poll: still pending.
		if receiptPolls.Add(1) == 1 {
			return nil
		}
		return map[string]string{
			"transactionHash": "0xhash1",
			"contractAddress": "0xstore42",
			"status":          "0x1",
		}
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := NewClient(srv.URL)
	receipt, err := client.Deploy(context.Background(), "0xowner", []byte{0x60, 0x60})
	require.NoError(t, err)
	assert.Equal(t, "0xstore42", receipt.ContractAddress)
	assert.GreaterOrEqual(t, receiptPolls.Load(), int64(2))
}

func TestClientDeployReverted(t *testing.T) {
	h := newRPCHandler()
	h.on("eth_sendTransaction", func([]interface{}) interface{} { return "0xhash2" })
	h.on("eth_getTransactionReceipt", func([]interface{}) interface{} {
		return map[string]string{"transactionHash": "0xhash2", "status": "0x0"}
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Deploy(context.Background(), "0xowner", nil)
	assert.ErrorIs(t, err, ErrDeployment)
}

func TestClientDevFund(t *testing.T) {
	h := newRPCHandler()
	h.on("hardhat_setBalance", func(params []interface{}) interface{} {
		return true
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	client := NewClient(srv.URL)
	require.NoError(t, client.DevFund(context.Background(), "0xbroke"))
	assert.Equal(t, int64(1), h.count("hardhat_setBalance"))
}
