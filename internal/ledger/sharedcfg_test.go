package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainIDServer(t *testing.T, fail *atomic.Bool, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if calls != nil {
			calls.Add(1)
		}
		if fail != nil && fail.Load() {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]interface{}{"code": -32000, "message": "node not ready"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": "0x7a69",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetOrInitCachesInstance(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var calls atomic.Int64
	srv := chainIDServer(t, nil, &calls)
	cfg := Config{RPCURLs: []string{srv.URL}, Address: "0xowner"}

	first, err := GetOrInit(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), first.ChainID().Int64())
	assert.Equal(t, "0xowner", first.Address())

	second, err := GetOrInit(context.Background(), cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), calls.Load(), "cached instance must not re-dial")
}

func TestGetOrInitConcurrentCallersShareOneInit(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var calls atomic.Int64
	srv := chainIDServer(t, nil, &calls)
	cfg := Config{RPCURLs: []string{srv.URL}, Address: "0xowner"}

	const workers = 16
	results := make([]*SharedConfig, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = GetOrInit(context.Background(), cfg)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Same(t, results[0], results[i], "worker %d got a different instance", i)
	}
	assert.Equal(t, int64(1), calls.Load(), "exactly one initialization must reach the network")
}

func TestGetOrInitFailureIsNotCached(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var fail atomic.Bool
	fail.Store(true)
	srv := chainIDServer(t, &fail, nil)
	cfg := Config{RPCURLs: []string{srv.URL}, Address: "0xowner"}

	_, err := GetOrInit(context.Background(), cfg)
	require.Error(t, err)

	fail.Store(false)
	s, err := GetOrInit(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), s.ChainID().Int64())
}

func TestGetOrInitValidatesConfig(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	_, err := GetOrInit(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = GetOrInit(context.Background(), Config{RPCURLs: []string{"http://localhost:8545"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSharedConfigChainIDIsCopied(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	srv := chainIDServer(t, nil, nil)
	s, err := GetOrInit(context.Background(), Config{RPCURLs: []string{srv.URL}, Address: "0xowner"})
	require.NoError(t, err)

	id := s.ChainID()
	id.SetInt64(99)
	assert.Equal(t, int64(31337), s.ChainID().Int64(), "callers must not mutate the shared chain id")
}
