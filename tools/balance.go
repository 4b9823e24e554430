package tools

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tmc/langchaingo/tools"
)

var usdcLogger = logrus.WithField("tool", "balance_tool")

const usdcDecimals = 6

// USDCBalanceTool reads the USDC balance of any address through Alchemy's
// token API.
type USDCBalanceTool struct {
	client      *resty.Client
	rpcURL      string
	usdcAddress string
}

func NewUSDCBalanceTool(client *resty.Client, rpcURL, usdcAddress string) *USDCBalanceTool {
	return &USDCBalanceTool{client: client, rpcURL: rpcURL, usdcAddress: usdcAddress}
}

func (t *USDCBalanceTool) Name() string {
	return "balance_tool"
}

func (t *USDCBalanceTool) Description() string {
	return "Tool to get the USDC payments balance of a wallet address. Input should be a wallet address."
}

func (t *USDCBalanceTool) Call(ctx context.Context, input string) (string, error) {
	address := strings.Trim(strings.TrimSpace(input), `"'`)
	toolLogger := usdcLogger.WithField("address", address)
	toolLogger.Info("Checking USDC balance")
	startTime := time.Now()

	if address == "" {
		return "Error: Please provide a wallet address", nil
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "alchemy_getTokenBalances",
			"params":  []any{address, []string{t.usdcAddress}},
		}).
		Post(t.rpcURL)
	if err != nil {
		toolLogger.WithError(err).Error("Balance request failed")
		return "", fmt.Errorf("failed to get balance: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to get balance: status %d", resp.StatusCode())
	}

	body := resp.Body()
	if rpcErr := gjson.GetBytes(body, "error.message"); rpcErr.Exists() {
		return "", fmt.Errorf("failed to get balance: %s", rpcErr.String())
	}
	raw := gjson.GetBytes(body, "result.tokenBalances.0.tokenBalance")
	if !raw.Exists() {
		return "", fmt.Errorf("failed to get balance: no token balance in response")
	}

	amount, err := parseTokenAmount(raw.String(), usdcDecimals)
	if err != nil {
		return "", err
	}

	toolLogger.WithField("executionTime", time.Since(startTime)).Info("USDC balance retrieved")
	return fmt.Sprintf("Your current payments wallet balance is %s USDC.", amount.StringFixed(2)), nil
}

// parseTokenAmount converts a hex base-unit balance into a decimal amount.
func parseTokenAmount(hexValue string, decimals int32) (decimal.Decimal, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(hexValue, "0x"), "0X")
	if digits == "" {
		return decimal.Zero, nil
	}
	units, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid token balance %q", hexValue)
	}
	return decimal.NewFromBigInt(units, -decimals), nil
}

var _ tools.Tool = (*USDCBalanceTool)(nil)
