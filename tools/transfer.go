package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"milo/wallet"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/tools"
)

var transferLogger = logrus.WithField("tool", TransferToolName)

const (
	TransferToolName = "transfer_erc721"

	// TransferMethod is the tickets manager entry point that moves a ticket
	// between wallets on behalf of the event's ERC-721 contract.
	TransferMethod = "transferTicket"
)

// TransferSchema declares the transfer tool's arguments. Every field is a
// string, but JSON numbers are accepted too and keep their literal text, so
// a model that sends tokenId as 42 is not bounced back with "expected
// string, received number" the way a strict string-only validator would.
var TransferSchema = Schema{
	Name:        "transfer_erc721_inputs",
	Description: "This tool will transfer tokens from one wallet to another using a specified contract.",
	Fields: []Field{
		{Name: "contractAddress", Description: "The contract address of the ERC721 token", NonEmpty: true},
		{Name: "from", Description: "The wallet address to transfer the token from"},
		{Name: "to", Description: "The wallet address to transfer the token to"},
		{Name: "tokenId", Description: "The ID of the token to transfer"},
	},
}

// TransferArgs are the validated transfer tool arguments. TokenID stays a
// string to avoid precision loss.
type TransferArgs struct {
	ContractAddress string `json:"contractAddress"`
	From            string `json:"from"`
	To              string `json:"to"`
	TokenID         string `json:"tokenId"`
}

// ParseTransferArgs validates raw tool input.
func ParseTransferArgs(input string) (TransferArgs, error) {
	values, err := TransferSchema.Parse(input)
	if err != nil {
		return TransferArgs{}, err
	}
	return TransferArgs{
		ContractAddress: values["contractAddress"],
		From:            values["from"],
		To:              values["to"],
		TokenID:         values["tokenId"],
	}, nil
}

// InvalidArgumentsError wraps a ValidationError raised before any chain
// interaction. The agent can recover from it by asking the user again.
type InvalidArgumentsError struct {
	Err *ValidationError
}

func (e *InvalidArgumentsError) Error() string {
	return "invalid arguments: " + strings.Join(e.Err.Reasons(), ", ")
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }

// ContractInvoker is the wallet capability the transfer needs.
type ContractInvoker interface {
	InvokeContract(ctx context.Context, opts wallet.InvokeOptions) (wallet.PendingInvocation, error)
}

// ContractTarget is the fixed, deployment-configured contract transfers go
// through, never taken from tool input.
type ContractTarget struct {
	Address string
	ABI     json.RawMessage
}

// TransferERC721 validates input, invokes transferTicket gaslessly on the
// tickets manager and blocks until the call is finalized. Errors other
// than validation are returned unchanged.
func TransferERC721(ctx context.Context, invoker ContractInvoker, target ContractTarget, input string) (string, error) {
	args, err := ParseTransferArgs(input)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			transferLogger.WithField("violations", verr.Fields()).Warn("Rejected transfer arguments")
			return "", &InvalidArgumentsError{Err: verr}
		}
		return "", err
	}

	toolLogger := transferLogger.WithFields(logrus.Fields{
		"ticketsContract": args.ContractAddress,
		"from":            args.From,
		"to":              args.To,
		"tokenId":         args.TokenID,
	})
	toolLogger.Info("Invoking ticket transfer")
	startTime := time.Now()

	pending, err := invoker.InvokeContract(ctx, wallet.InvokeOptions{
		ContractAddress: target.Address,
		Method:          TransferMethod,
		Args: map[string]any{
			"ticketsContract": args.ContractAddress,
			"from":            args.From,
			"to":              args.To,
			"tokenId":         args.TokenID,
		},
		ABI:     target.ABI,
		Gasless: true,
	})
	if err != nil {
		return "", err
	}

	result, err := pending.Wait(ctx)
	if err != nil {
		return "", err
	}

	toolLogger.WithFields(logrus.Fields{
		"transactionHash": result.TransactionHash(),
		"executionTime":   time.Since(startTime),
	}).Info("Ticket transfer finalized")

	return fmt.Sprintf("Token transferred successfully: %s", result.TransactionHash()), nil
}

// TransferTool exposes TransferERC721 to the agent.
type TransferTool struct {
	invoker ContractInvoker
	target  ContractTarget
}

func NewTransferTool(invoker ContractInvoker, target ContractTarget) *TransferTool {
	return &TransferTool{invoker: invoker, target: target}
}

func (t *TransferTool) Name() string {
	return TransferToolName
}

func (t *TransferTool) Description() string {
	return TransferSchema.Describe()
}

func (t *TransferTool) Call(ctx context.Context, input string) (string, error) {
	return TransferERC721(ctx, t.invoker, t.target, input)
}

var _ tools.Tool = (*TransferTool)(nil)
