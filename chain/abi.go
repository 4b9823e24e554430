package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

var abiLogger = logrus.WithField("component", "abi")

// ErrABIUnavailable is returned when the contract artifact cannot be used.
var ErrABIUnavailable = errors.New("contract ABI unavailable")

// NewHTTPClient returns the resty client used for plain GETs and JSON-RPC
// calls against third parties. No retries: a single attempt per call.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "milo-agent/1.0")
}

// FetchABI downloads a compiled contract artifact and returns its "abi"
// array. The artifact is the usual hardhat/foundry JSON with the ABI under
// the top-level "abi" key.
func FetchABI(ctx context.Context, client *resty.Client, url string) (json.RawMessage, error) {
	logger := abiLogger.WithField("url", url)
	logger.Info("Fetching contract ABI")

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		logger.WithError(err).Error("ABI request failed")
		return nil, fmt.Errorf("%w: %v", ErrABIUnavailable, err)
	}
	if resp.IsError() {
		logger.WithField("status", resp.StatusCode()).Error("ABI request returned error status")
		return nil, fmt.Errorf("%w: status %d", ErrABIUnavailable, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: artifact is not valid JSON", ErrABIUnavailable)
	}
	abi := gjson.GetBytes(body, "abi")
	if !abi.IsArray() {
		return nil, fmt.Errorf("%w: artifact has no abi array", ErrABIUnavailable)
	}

	logger.WithField("entries", len(abi.Array())).Info("Contract ABI loaded")
	return json.RawMessage(abi.Raw), nil
}

// RequireMethod checks that abi declares a function named method.
func RequireMethod(abi json.RawMessage, method string) error {
	for _, name := range gjson.GetBytes(abi, `#(type=="function")#.name`).Array() {
		if name.String() == method {
			return nil
		}
	}
	return fmt.Errorf("%w: method %q not found", ErrABIUnavailable, method)
}
