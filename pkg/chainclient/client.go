// Package chainclient is a minimal ICON JSON-RPC v3 client. It does not talk
// to the network itself; every call goes through a RequestCapability, which
// in production is the relay provider.
package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

const (
	rpcPath    = "/api/v3"
	rpcVersion = "2.0"

	MethodGetBalance           = "icx_getBalance"
	MethodSendTransaction      = "icx_sendTransaction"
	MethodGetTransactionResult = "icx_getTransactionResult"
	MethodGetLastBlock         = "icx_getLastBlock"

	// maxConcurrentQueries bounds the relays GetBalances keeps in flight
	maxConcurrentQueries = 4
)

// RequestCapability performs one request against the chain and returns the JSON response body
type RequestCapability interface {
	Request(ctx context.Context, url string, body []byte, method types.HTTPMethod) (json.RawMessage, error)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error returned by the chain node
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

type Client struct {
	capability RequestCapability
	logger     *zap.Logger
	nextID     atomic.Uint64
}

func NewClient(capability RequestCapability, logger *zap.Logger) (*Client, error) {
	if capability == nil {
		return nil, fmt.Errorf("request capability is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Client{capability: capability, logger: logger}, nil
}

// Call sends a JSON-RPC request and decodes its result into out. out may be nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	id := c.nextID.Add(1)
	body, err := json.Marshal(rpcRequest{
		JSONRPC: rpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	c.logger.Sugar().Debugw("Calling chain", "method", method, "id", id)

	raw, err := c.capability.Request(ctx, rpcPath, body, types.HTTPMethodPOST)
	if err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &types.DecodeError{Payload: raw, Err: err}
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return &types.DecodeError{Payload: raw, Err: fmt.Errorf("%s response has no result", method)}
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return &types.DecodeError{Payload: raw, Err: err}
	}
	return nil
}

// GetBalance returns the ICX balance of address in loop
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var result string
	if err := c.Call(ctx, MethodGetBalance, map[string]string{"address": address}, &result); err != nil {
		return nil, err
	}
	balance, err := hexutil.DecodeBig(result)
	if err != nil {
		return nil, &types.DecodeError{Payload: []byte(result), Err: fmt.Errorf("invalid balance: %w", err)}
	}
	return balance, nil
}

// GetBalances queries every address concurrently. The first failure cancels the rest.
func (c *Client) GetBalances(ctx context.Context, addresses []string) (map[string]*big.Int, error) {
	var mu sync.Mutex
	balances := make(map[string]*big.Int, len(addresses))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentQueries)
	for _, address := range addresses {
		address := address
		group.Go(func() error {
			balance, err := c.GetBalance(ctx, address)
			if err != nil {
				return fmt.Errorf("failed to get balance of %s: %w", address, err)
			}
			mu.Lock()
			balances[address] = balance
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return balances, nil
}

// SendTransaction submits a signed transaction and returns its hash
func (c *Client) SendTransaction(ctx context.Context, signedTx map[string]string) (string, error) {
	if signedTx["signature"] == "" {
		return "", fmt.Errorf("transaction is not signed")
	}
	var txHash string
	if err := c.Call(ctx, MethodSendTransaction, signedTx, &txHash); err != nil {
		return "", err
	}
	c.logger.Sugar().Infow("Submitted transaction", "tx_hash", txHash)
	return txHash, nil
}

// TransactionFailure explains why a transaction was not applied
type TransactionFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TransactionResult struct {
	Status             string              `json:"status"`
	To                 string              `json:"to"`
	TxHash             string              `json:"txHash"`
	TxIndex            string              `json:"txIndex"`
	BlockHeight        string              `json:"blockHeight"`
	BlockHash          string              `json:"blockHash"`
	CumulativeStepUsed string              `json:"cumulativeStepUsed"`
	StepUsed           string              `json:"stepUsed"`
	StepPrice          string              `json:"stepPrice"`
	ScoreAddress       string              `json:"scoreAddress,omitempty"`
	Failure            *TransactionFailure `json:"failure,omitempty"`
}

// Succeeded reports whether the transaction was applied
func (r *TransactionResult) Succeeded() bool {
	return r.Status == "0x1"
}

func (c *Client) GetTransactionResult(ctx context.Context, txHash string) (*TransactionResult, error) {
	var result TransactionResult
	if err := c.Call(ctx, MethodGetTransactionResult, map[string]string{"txHash": txHash}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type Block struct {
	Version                  string          `json:"version"`
	Height                   int64           `json:"height"`
	BlockHash                string          `json:"block_hash"`
	PrevBlockHash            string          `json:"prev_block_hash"`
	MerkleTreeRootHash       string          `json:"merkle_tree_root_hash"`
	TimeStamp                int64           `json:"time_stamp"`
	ConfirmedTransactionList json.RawMessage `json:"confirmed_transaction_list"`
}

func (c *Client) GetLastBlock(ctx context.Context) (*Block, error) {
	var block Block
	if err := c.Call(ctx, MethodGetLastBlock, nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}
