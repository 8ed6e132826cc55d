package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrRPCFailed indicates all RPC endpoints failed.
	ErrRPCFailed = errors.New("ledger rpc failed")

	// ErrDeployment indicates store deployment failure.
	ErrDeployment = errors.New("store deployment failed")
)

// Client is a minimal JSON-RPC client for the ledger network.
type Client struct {
	urls       []string
	httpClient *http.Client
	requestID  atomic.Int64
}

// NewClient creates a client with the given endpoint URLs. The first
// URL is primary; others are fallbacks.
func NewClient(urls ...string) *Client {
	return &Client{
		urls: urls,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call executes a JSON-RPC method against the endpoints in order and
// returns the raw result of the first endpoint that answers.
func (c *Client) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestID.Add(1),
	}

	var lastErr error
	for _, url := range c.urls {
		result, err := c.doRequest(ctx, url, req)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: all endpoints failed: %v", ErrRPCFailed, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, req rpcRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// callHexUint executes a method whose result is a hex quantity string.
func (c *Client) callHexUint(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	result, err := c.call(ctx, method, params...)
	if err != nil {
		return nil, err
	}

	var hexResult string
	if err := json.Unmarshal(result, &hexResult); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	value, ok := new(big.Int).SetString(strings.TrimPrefix(hexResult, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("%w: malformed hex quantity %q", ErrRPCFailed, hexResult)
	}
	return value, nil
}

// ChainID returns the network chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.callHexUint(ctx, "eth_chainId")
}

// BalanceAt returns the latest balance of the given account.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	return c.callHexUint(ctx, "eth_getBalance", address, "latest")
}

// Receipt is the subset of a transaction receipt memoryd reads.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	ContractAddress string `json:"contractAddress"`
	Status          string `json:"status"`
}

// Deploy submits a store deployment transaction from the given owner
// and waits for the receipt. The returned contract address becomes the
// tenant handle.
func (c *Client) Deploy(ctx context.Context, owner string, code []byte) (*Receipt, error) {
	tx := map[string]string{
		"from": owner,
		"data": "0x" + fmt.Sprintf("%x", code),
	}

	result, err := c.call(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeployment, err)
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil {
		return nil, fmt.Errorf("%w: unmarshal tx hash: %v", ErrDeployment, err)
	}

	receipt, err := c.waitForReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeployment, err)
	}
	if receipt.Status != "0x1" {
		return nil, fmt.Errorf("%w: transaction %s reverted", ErrDeployment, txHash)
	}
	return receipt, nil
}

// waitForReceipt polls for the transaction receipt until it appears or
// the context is cancelled.
func (c *Client) waitForReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		result, err := c.call(ctx, "eth_getTransactionReceipt", txHash)
		if err != nil {
			return nil, err
		}
		if string(result) != "null" && len(result) > 0 {
			var receipt Receipt
			if err := json.Unmarshal(result, &receipt); err != nil {
				return nil, fmt.Errorf("unmarshal receipt: %w", err)
			}
			return &receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DevFund credits the account with one unit of funds through the
// development node's faucet. Never available in production.
func (c *Client) DevFund(ctx context.Context, address string) error {
	// 1 ETH in wei
	amount := "0xde0b6b3a7640000"
	if _, err := c.call(ctx, "hardhat_setBalance", address, amount); err != nil {
		return fmt.Errorf("funding %s: %w", address, err)
	}
	return nil
}
