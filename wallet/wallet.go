/*
Package wallet provides the wallet capability the agent acts through.

A user's wallet is stored encrypted. For the duration of one request it is
decrypted into Material, opened against the hosted wallet API and handed to
the agent tools as a *Wallet. Material never leaves process memory and is
never logged.
*/
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrWalletNotFound is returned by stores when a user has no wallet record.
var ErrWalletNotFound = errors.New("wallet not found")

// Material is the decrypted wallet export: the wallet id at the provider
// and the seed that proves ownership of it.
type Material struct {
	WalletID  string `json:"walletId"`
	Seed      string `json:"seed"`
	NetworkID string `json:"networkId,omitempty"`
}

// Validate checks that the material can be used to open a wallet.
func (m Material) Validate() error {
	if m.WalletID == "" {
		return errors.New("wallet material has no walletId")
	}
	if m.Seed == "" {
		return errors.New("wallet material has no seed")
	}
	return nil
}

// String keeps the seed out of logs and error messages.
func (m Material) String() string {
	return fmt.Sprintf("wallet(%s)", m.WalletID)
}

// InvokeOptions describes one smart contract call.
type InvokeOptions struct {
	ContractAddress string          `json:"contractAddress"`
	Method          string          `json:"method"`
	Args            map[string]any  `json:"args"`
	ABI             json.RawMessage `json:"abi"`
	Gasless         bool            `json:"gasless"`
}

// PendingInvocation is a submitted contract call that has not been finalized.
type PendingInvocation interface {
	Wait(ctx context.Context) (FinalizedInvocation, error)
}

// FinalizedInvocation is a contract call confirmed on chain.
type FinalizedInvocation interface {
	TransactionHash() string
}

// InvocationFailedError reports a contract call the provider marked failed.
type InvocationFailedError struct {
	ID     string
	Reason string
}

func (e *InvocationFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("contract invocation %s failed", e.ID)
	}
	return fmt.Sprintf("contract invocation %s failed: %s", e.ID, e.Reason)
}
