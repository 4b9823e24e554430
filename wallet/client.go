package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var clientLogger = logrus.WithField("component", "wallet")

// Invocation states reported by the wallet API.
const (
	StatusPending   = "pending"
	StatusSigned    = "signed"
	StatusBroadcast = "broadcast"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

// ClientConfig configures the hosted wallet API client.
type ClientConfig struct {
	BaseURL          string
	APIKeyName       string
	APIKeyPrivateKey string
	NetworkID        string
	Timeout          time.Duration
	PollInterval     time.Duration
	// DescriptorTTL is how long wallet descriptors are reused between
	// requests. Zero uses the default, negative disables caching.
	DescriptorTTL time.Duration
}

// Client talks to the hosted wallet API. It is safe for concurrent use and
// holds no per-user state; wallets opened from it are request scoped.
type Client struct {
	http         *resty.Client
	key          *apiKey
	host         string
	networkID    string
	pollInterval time.Duration
	descriptors  *cache.Cache // wallet ID -> walletResponse; never holds seeds
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("wallet API error %s: %s", e.Code, e.Message)
}

type walletResponse struct {
	ID             string `json:"id"`
	NetworkID      string `json:"networkId"`
	DefaultAddress string `json:"defaultAddress"`
}

type invocationResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	TransactionHash string `json:"transactionHash"`
	Error           string `json:"error"`
}

type balanceResponse struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type faucetResponse struct {
	TransactionHash string `json:"transactionHash"`
}

// NewClient builds a client from cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid wallet API url %q", cfg.BaseURL)
	}
	key, err := parseAPIKey(cfg.APIKeyName, cfg.APIKeyPrivateKey)
	if err != nil {
		return nil, err
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	ttl := cfg.DescriptorTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	c := &Client{
		key:          key,
		host:         base.Host,
		networkID:    cfg.NetworkID,
		pollInterval: pollInterval,
	}
	if ttl > 0 {
		c.descriptors = cache.New(ttl, 2*ttl)
	}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetError(&apiError{}).
		OnBeforeRequest(c.authorize)
	return c, nil
}

func (c *Client) authorize(_ *resty.Client, r *resty.Request) error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid wallet API path %q: %w", r.URL, err)
	}
	token, err := c.key.token(r.Method, c.host, u.Path, time.Now())
	if err != nil {
		return err
	}
	r.SetAuthToken(token)
	return nil
}

func responseError(resp *resty.Response, err error, action string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if resp.IsError() {
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Message != "" {
			return fmt.Errorf("failed to %s: %w", action, apiErr)
		}
		return fmt.Errorf("failed to %s: status %d", action, resp.StatusCode())
	}
	return nil
}

// Open resolves material to a live wallet on the configured network.
func (c *Client) Open(ctx context.Context, m Material) (*Wallet, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	out, err := c.descriptor(ctx, m.WalletID)
	if err != nil {
		return nil, err
	}

	networkID := c.networkID
	if m.NetworkID != "" {
		networkID = m.NetworkID
	}
	if out.NetworkID != "" && networkID != "" && out.NetworkID != networkID {
		return nil, fmt.Errorf("wallet %s is on network %s, expected %s", out.ID, out.NetworkID, networkID)
	}
	if out.DefaultAddress == "" {
		return nil, fmt.Errorf("wallet %s has no default address", out.ID)
	}

	clientLogger.WithFields(logrus.Fields{
		"walletId":  out.ID,
		"networkId": out.NetworkID,
	}).Debug("Wallet opened")

	return &Wallet{
		client:         c,
		seed:           m.Seed,
		ID:             out.ID,
		NetworkID:      out.NetworkID,
		DefaultAddress: out.DefaultAddress,
	}, nil
}

func (c *Client) descriptor(ctx context.Context, walletID string) (walletResponse, error) {
	if c.descriptors != nil {
		if cached, ok := c.descriptors.Get(walletID); ok {
			return cached.(walletResponse), nil
		}
	}

	var out walletResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/wallets/" + url.PathEscape(walletID))
	if err := responseError(resp, err, "load wallet"); err != nil {
		return walletResponse{}, err
	}

	if c.descriptors != nil && out.DefaultAddress != "" {
		c.descriptors.SetDefault(walletID, out)
	}
	return out, nil
}

// Wallet is an opened wallet bound to one request.
type Wallet struct {
	client *Client
	seed   string

	ID             string
	NetworkID      string
	DefaultAddress string
}

func (w *Wallet) addressPath(suffix string) string {
	return fmt.Sprintf("/v1/wallets/%s/addresses/%s/%s",
		url.PathEscape(w.ID), url.PathEscape(w.DefaultAddress), suffix)
}

func (w *Wallet) signedPost(ctx context.Context, path string, payload any, result any, action string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}
	resp, err := w.client.http.R().
		SetContext(ctx).
		SetHeader("X-Wallet-Signature", walletSignature(w.seed, body)).
		SetBody(body).
		SetResult(result).
		Post(path)
	return responseError(resp, err, action)
}

// InvokeContract submits a contract call from the wallet's default address.
func (w *Wallet) InvokeContract(ctx context.Context, opts InvokeOptions) (PendingInvocation, error) {
	var out invocationResponse
	if err := w.signedPost(ctx, w.addressPath("contract_invocations"), opts, &out, "invoke contract"); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("failed to invoke contract: wallet API returned no invocation id")
	}

	clientLogger.WithFields(logrus.Fields{
		"walletId":     w.ID,
		"invocationId": out.ID,
		"contract":     opts.ContractAddress,
		"method":       opts.Method,
		"gasless":      opts.Gasless,
	}).Info("Contract invocation submitted")

	return &pendingInvocation{wallet: w, id: out.ID}, nil
}

// Balance returns the wallet's balance of asset (e.g. "eth", "usdc").
func (w *Wallet) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var out balanceResponse
	resp, err := w.client.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(w.addressPath("balances/" + url.PathEscape(asset)))
	if err := responseError(resp, err, "get balance"); err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(out.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance amount %q: %w", out.Amount, err)
	}
	return amount, nil
}

// RequestFaucetFunds asks the network faucet for test funds and returns the
// funding transaction hash.
func (w *Wallet) RequestFaucetFunds(ctx context.Context, asset string) (string, error) {
	var out faucetResponse
	payload := map[string]string{"asset": asset}
	if err := w.signedPost(ctx, w.addressPath("faucet"), payload, &out, "request faucet funds"); err != nil {
		return "", err
	}
	return out.TransactionHash, nil
}

type pendingInvocation struct {
	wallet *Wallet
	id     string
}

// Invocation is a finalized contract call.
type Invocation struct {
	ID   string
	Hash string
}

// TransactionHash implements FinalizedInvocation.
func (i *Invocation) TransactionHash() string { return i.Hash }

// Wait polls the invocation until it completes, fails or ctx is done.
func (p *pendingInvocation) Wait(ctx context.Context) (FinalizedInvocation, error) {
	ticker := time.NewTicker(p.wallet.client.pollInterval)
	defer ticker.Stop()

	path := p.wallet.addressPath("contract_invocations/" + url.PathEscape(p.id))
	for {
		var out invocationResponse
		resp, err := p.wallet.client.http.R().
			SetContext(ctx).
			SetResult(&out).
			Get(path)
		if err := responseError(resp, err, "poll contract invocation"); err != nil {
			return nil, err
		}

		switch out.Status {
		case StatusComplete:
			if out.TransactionHash == "" {
				return nil, fmt.Errorf("contract invocation %s completed without a transaction hash", p.id)
			}
			clientLogger.WithFields(logrus.Fields{
				"invocationId":    p.id,
				"transactionHash": out.TransactionHash,
			}).Info("Contract invocation finalized")
			return &Invocation{ID: p.id, Hash: out.TransactionHash}, nil
		case StatusFailed:
			return nil, &InvocationFailedError{ID: p.id, Reason: out.Error}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
