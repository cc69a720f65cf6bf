package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTokenAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testFromAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int64             `json:"id"`
}

// rpcMock creates a JSON-RPC server answering each method with a fixed result.
// A value of type *RPCError is sent back as the error object instead.
func rpcMock(t *testing.T, responses map[string]interface{}) *httptest.Server {
	t.Helper()
	return rpcMockFunc(t, func(call rpcCall) interface{} {
		resp, ok := responses[call.Method]
		if !ok {
			return &RPCError{Code: -32601, Message: "method not found"}
		}
		return resp
	})
}

func rpcMockFunc(t *testing.T, handle func(rpcCall) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

		body := map[string]interface{}{"jsonrpc": "2.0", "id": call.ID}
		switch v := handle(call).(type) {
		case *RPCError:
			body["error"] = v
		default:
			body["result"] = v
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
}

// ---------------------------------------------------------------------------
// Simple getters
// ---------------------------------------------------------------------------

func TestChainID(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_chainId": "0x7a69"})
	defer srv.Close()

	id, err := NewEVMClient(srv.URL).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(31337), id)
}

func TestBlockNumber(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0xE5E534"})
	defer srv.Close()

	n, err := NewEVMClient(srv.URL).BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0xE5E534), n)
}

func TestPing(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_blockNumber": "0x10"})
	defer srv.Close()

	latency, block, err := NewEVMClient(srv.URL).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), block)
	assert.Greater(t, latency, time.Duration(0))
}

func TestGasPrice(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_gasPrice": "0x3b9aca00"})
	defer srv.Close()

	gp, err := NewEVMClient(srv.URL).GasPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), gp)
}

func TestPendingNonceUsesPendingTag(t *testing.T) {
	var tag string
	srv := rpcMockFunc(t, func(call rpcCall) interface{} {
		require.Len(t, call.Params, 2)
		json.Unmarshal(call.Params[1], &tag) //nolint:errcheck
		return "0x7"
	})
	defer srv.Close()

	n, err := NewEVMClient(srv.URL).PendingNonce(context.Background(), common.HexToAddress(testFromAddr))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
	assert.Equal(t, "pending", tag)
}

func TestRequestIDsIncrease(t *testing.T) {
	var ids []int64
	srv := rpcMockFunc(t, func(call rpcCall) interface{} {
		ids = append(ids, call.ID)
		return "0x1"
	})
	defer srv.Close()

	c := NewEVMClient(srv.URL)
	_, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	_, err = c.BlockNumber(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Less(t, ids[0], ids[1])
}

// ---------------------------------------------------------------------------
// CallContract / EstimateGas
// ---------------------------------------------------------------------------

func TestCallContractSendsCalldata(t *testing.T) {
	var args map[string]string
	srv := rpcMockFunc(t, func(call rpcCall) interface{} {
		assert.Equal(t, "eth_call", call.Method)
		json.Unmarshal(call.Params[0], &args) //nolint:errcheck
		return "0x000000000000000000000000000000000000000000000000000000003b9aca00"
	})
	defer srv.Close()

	out, err := NewEVMClient(srv.URL).CallContract(context.Background(),
		common.Address{}, common.HexToAddress(testTokenAddr), []byte{0x70, 0xa0, 0x82, 0x31})
	require.NoError(t, err)
	assert.Len(t, out, 32)
	assert.Equal(t, int64(1_000_000_000), new(big.Int).SetBytes(out).Int64())

	assert.Equal(t, "0x70a08231", args["data"])
	_, hasFrom := args["from"]
	assert.False(t, hasFrom, "zero from address must be omitted")
}

func TestCallContractRevert(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_call": &RPCError{Code: 3, Message: "execution reverted: not owner"},
	})
	defer srv.Close()

	_, err := NewEVMClient(srv.URL).CallContract(context.Background(),
		common.Address{}, common.HexToAddress(testTokenAddr), nil)
	require.Error(t, err)
	assert.True(t, IsRevert(err))
}

func TestEstimateGas(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_estimateGas": "0xea60"})
	defer srv.Close()

	gas, err := NewEVMClient(srv.URL).EstimateGas(context.Background(),
		common.HexToAddress(testFromAddr), common.HexToAddress(testTokenAddr), []byte{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(60_000), gas)
}

// ---------------------------------------------------------------------------
// SendRawTransaction
// ---------------------------------------------------------------------------

func TestSendRawTransaction(t *testing.T) {
	want := common.HexToHash("0xabc123")
	var sent string
	srv := rpcMockFunc(t, func(call rpcCall) interface{} {
		json.Unmarshal(call.Params[0], &sent) //nolint:errcheck
		return want.Hex()
	})
	defer srv.Close()

	hash, err := NewEVMClient(srv.URL).SendRawTransaction(context.Background(), []byte{0xde, 0xad})
	require.NoError(t, err)
	assert.Equal(t, want, hash)
	assert.Equal(t, "0xdead", sent)
}

func TestSendRawTransactionRPCError(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_sendRawTransaction": &RPCError{Code: -32000, Message: "nonce too low"},
	})
	defer srv.Close()

	_, err := NewEVMClient(srv.URL).SendRawTransaction(context.Background(), []byte{1})
	require.Error(t, err)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32000, rpcErr.Code)
	assert.False(t, rpcErr.IsRevert())
}

// ---------------------------------------------------------------------------
// Receipts
// ---------------------------------------------------------------------------

func TestTransactionReceiptSuccess(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":          "0x1",
			"blockNumber":     "0x100",
			"gasUsed":         "0x5208",
			"contractAddress": nil,
		},
	})
	defer srv.Close()

	hash := common.HexToHash("0x01")
	receipt, err := NewEVMClient(srv.URL).TransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(256), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Empty(t, receipt.ContractAddress)
}

func TestTransactionReceiptReverted(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{
			"status":      "0x0",
			"blockNumber": "0x200",
			"gasUsed":     "0x7530",
		},
	})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).TransactionReceipt(context.Background(), common.HexToHash("0x02"))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())
}

func TestTransactionReceiptPending(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).TransactionReceipt(context.Background(), common.HexToHash("0x03"))
	require.NoError(t, err)
	assert.Nil(t, receipt, "pending tx should return nil receipt")
}

func TestWaitForReceiptPollsUntilMined(t *testing.T) {
	var polls atomic.Int32
	srv := rpcMockFunc(t, func(call rpcCall) interface{} {
		if polls.Add(1) < 3 {
			return nil
		}
		return map[string]interface{}{"status": "0x1", "blockNumber": "0x5", "gasUsed": "0x1"}
	})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(context.Background(), common.HexToHash("0x04"), 5*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitForReceiptReturnsRevertedReceipt(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{
		"eth_getTransactionReceipt": map[string]interface{}{"status": "0x0", "blockNumber": "0x5", "gasUsed": "0x1"},
	})
	defer srv.Close()

	receipt, err := NewEVMClient(srv.URL).WaitForReceipt(context.Background(), common.HexToHash("0x05"), time.Millisecond)
	require.NoError(t, err)
	assert.False(t, receipt.Succeeded())
}

func TestWaitForReceiptContextCancelled(t *testing.T) {
	srv := rpcMock(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewEVMClient(srv.URL).WaitForReceipt(ctx, common.HexToHash("0x06"), 5*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ---------------------------------------------------------------------------
// Transport errors
// ---------------------------------------------------------------------------

func TestUnreachableEndpoint(t *testing.T) {
	_, err := NewEVMClient("http://127.0.0.1:19993").BlockNumber(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RPC request failed")
}

func TestNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewEVMClient(srv.URL).BlockNumber(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestRPCErrorMessage(t *testing.T) {
	err := &RPCError{Code: -32000, Message: "boom"}
	assert.Equal(t, "RPC error -32000: boom", err.Error())
	assert.False(t, IsRevert(errors.New("plain")))
}
