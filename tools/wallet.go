package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/tools"
)

var walletToolLogger = logrus.WithField("tool", "wallet")

// WalletDetails is what the agent may know about the caller's wallet.
type WalletDetails struct {
	ID        string
	NetworkID string
	Address   string
}

type WalletDetailsTool struct {
	details WalletDetails
}

func NewWalletDetailsTool(details WalletDetails) *WalletDetailsTool {
	return &WalletDetailsTool{details: details}
}

func (t *WalletDetailsTool) Name() string {
	return "get_wallet_details"
}

func (t *WalletDetailsTool) Description() string {
	return "This tool will get details about the MPC Wallet. It takes no input."
}

func (t *WalletDetailsTool) Call(ctx context.Context, input string) (string, error) {
	walletToolLogger.WithField("walletId", t.details.ID).Info("Wallet details requested")
	return fmt.Sprintf("Wallet: %s on network: %s with default address: %s",
		t.details.ID, t.details.NetworkID, t.details.Address), nil
}

// BalanceReader reads wallet balances.
type BalanceReader interface {
	Balance(ctx context.Context, asset string) (decimal.Decimal, error)
}

type BalanceTool struct {
	reader BalanceReader
}

func NewBalanceTool(reader BalanceReader) *BalanceTool {
	return &BalanceTool{reader: reader}
}

func (t *BalanceTool) Name() string {
	return "get_balance"
}

func (t *BalanceTool) Description() string {
	return "This tool will get the balance of the wallet's default address for a given asset. Input is the asset ID, e.g. 'eth' or 'usdc'. Defaults to 'eth'."
}

func (t *BalanceTool) Call(ctx context.Context, input string) (string, error) {
	asset := assetID(input)
	toolLogger := walletToolLogger.WithFields(logrus.Fields{"operation": "balance", "asset": asset})
	toolLogger.Info("Balance tool called")

	amount, err := t.reader.Balance(ctx, asset)
	if err != nil {
		toolLogger.WithError(err).Error("Balance lookup failed")
		return "", err
	}
	return fmt.Sprintf("Balance of %s: %s", asset, amount.String()), nil
}

// FaucetRequester requests testnet funds.
type FaucetRequester interface {
	RequestFaucetFunds(ctx context.Context, asset string) (string, error)
}

type FaucetTool struct {
	requester FaucetRequester
	enabled   bool
}

// NewFaucetTool builds the faucet tool. When enabled is false the tool
// explains that the faucet only exists on the test network.
func NewFaucetTool(requester FaucetRequester, enabled bool) *FaucetTool {
	return &FaucetTool{requester: requester, enabled: enabled}
}

func (t *FaucetTool) Name() string {
	return "request_faucet_funds"
}

func (t *FaucetTool) Description() string {
	return "This tool will request test tokens from the faucet for the default address in the wallet. Input is the optional asset ID ('eth' or 'usdc'); defaults to 'eth'. Only available on base-sepolia."
}

func (t *FaucetTool) Call(ctx context.Context, input string) (string, error) {
	if !t.enabled {
		return "Faucet funds are only available on the base-sepolia network.", nil
	}
	asset := assetID(input)
	toolLogger := walletToolLogger.WithFields(logrus.Fields{"operation": "faucet", "asset": asset})
	toolLogger.Info("Faucet tool called")

	hash, err := t.requester.RequestFaucetFunds(ctx, asset)
	if err != nil {
		toolLogger.WithError(err).Error("Faucet request failed")
		return "", err
	}
	return fmt.Sprintf("Received %s from the faucet. Transaction: %s", asset, hash), nil
}

func assetID(input string) string {
	asset := strings.ToLower(strings.Trim(strings.TrimSpace(input), `"'`))
	if asset == "" || asset == "{}" {
		return "eth"
	}
	return asset
}

var (
	_ tools.Tool = (*WalletDetailsTool)(nil)
	_ tools.Tool = (*BalanceTool)(nil)
	_ tools.Tool = (*FaucetTool)(nil)
)
