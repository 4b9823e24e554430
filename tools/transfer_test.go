package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"milo/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvocation struct {
	hash string
	err  error
}

func (f *fakeInvocation) Wait(ctx context.Context) (wallet.FinalizedInvocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &wallet.Invocation{ID: "inv-1", Hash: f.hash}, nil
}

type fakeInvoker struct {
	calls     []wallet.InvokeOptions
	invokeErr error
	pending   *fakeInvocation
}

func (f *fakeInvoker) InvokeContract(ctx context.Context, opts wallet.InvokeOptions) (wallet.PendingInvocation, error) {
	f.calls = append(f.calls, opts)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.pending, nil
}

var testTarget = ContractTarget{
	Address: "0x3660220f72e8EF4c5dcb09ff14FAE776E5A708a6",
	ABI:     json.RawMessage(`[{"type":"function","name":"transferTicket"}]`),
}

func TestTransferERC721Success(t *testing.T) {
	invoker := &fakeInvoker{pending: &fakeInvocation{hash: "0xdeadbeef"}}

	out, err := TransferERC721(context.Background(), invoker, testTarget,
		`{"contractAddress":"0xA","from":"0xB","to":"0xC","tokenId":"7"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "0xdeadbeef")
	assert.Equal(t, "Token transferred successfully: 0xdeadbeef", out)

	require.Len(t, invoker.calls, 1)
	call := invoker.calls[0]
	assert.Equal(t, testTarget.Address, call.ContractAddress)
	assert.Equal(t, "transferTicket", call.Method)
	assert.True(t, call.Gasless)
	assert.JSONEq(t, string(testTarget.ABI), string(call.ABI))
	assert.Equal(t, map[string]any{
		"ticketsContract": "0xA",
		"from":            "0xB",
		"to":              "0xC",
		"tokenId":         "7",
	}, call.Args)
}

func TestTransferERC721RejectsExtraField(t *testing.T) {
	invoker := &fakeInvoker{pending: &fakeInvocation{hash: "0xdeadbeef"}}

	_, err := TransferERC721(context.Background(), invoker, testTarget,
		`{"contractAddress":"0xA","from":"0xB","to":"0xC","tokenId":"7","extra":"x"}`)

	var invalid *InvalidArgumentsError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "extra")
	assert.Equal(t, "invalid arguments: extra: unrecognized key", err.Error())
	assert.Empty(t, invoker.calls, "no chain interaction on invalid input")
}

func TestTransferERC721ReportsEveryViolation(t *testing.T) {
	invoker := &fakeInvoker{}

	_, err := TransferERC721(context.Background(), invoker, testTarget,
		`{"contractAddress":"","to":false,"note":"hi"}`)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"contractAddress", "from", "note", "to", "tokenId"}, verr.Fields())
	assert.Equal(t,
		"invalid arguments: contractAddress: must not be empty, from: required, note: unrecognized key, to: expected string, received boolean, tokenId: required",
		err.Error())
	assert.Empty(t, invoker.calls)
}

func TestTransferERC721PropagatesExecutionErrors(t *testing.T) {
	invokeErr := errors.New("rpc unavailable")
	waitErr := &wallet.InvocationFailedError{ID: "inv-1", Reason: "execution reverted"}

	tests := []struct {
		name    string
		invoker *fakeInvoker
		want    error
	}{
		{name: "invoke", invoker: &fakeInvoker{invokeErr: invokeErr}, want: invokeErr},
		{name: "wait", invoker: &fakeInvoker{pending: &fakeInvocation{err: waitErr}}, want: waitErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TransferERC721(context.Background(), tt.invoker, testTarget,
				`{"contractAddress":"0xA","from":"0xB","to":"0xC","tokenId":"7"}`)
			assert.Same(t, tt.want, err)
		})
	}
}

func TestTransferToolImplementsTool(t *testing.T) {
	tool := NewTransferTool(&fakeInvoker{pending: &fakeInvocation{hash: "0x1"}}, testTarget)

	assert.Equal(t, "transfer_erc721", tool.Name())
	assert.Contains(t, tool.Description(), "contractAddress")
	assert.Contains(t, tool.Description(), "tokenId")

	out, err := tool.Call(context.Background(), `{"contractAddress":"0xA","from":"0xB","to":"0xC","tokenId":"7"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "0x1")
}
