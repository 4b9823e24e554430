package wallet

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Malformed API behaviours the fake can be switched into.
const (
	statusNoInvocationID = "no-invocation-id"
	statusNoHash         = "complete-without-hash"
)

type fakeWalletAPI struct {
	t      *testing.T
	public *ecdsa.PublicKey
	polls  atomic.Int32
	opens  atomic.Int32
	// invocation status returned once polling starts
	finalStatus string
}

func (f *fakeWalletAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return f.public, nil })
	if err != nil || !tok.Valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"unauthorized","message":"bad token"}`))
		return
	}
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(f.t, r.Method+" "+r.Host+r.URL.Path, claims["uri"])

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/wallets/w-1":
		f.opens.Add(1)
		w.Write([]byte(`{"id":"w-1","networkId":"base-sepolia","defaultAddress":"0xB0b"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/wallets/missing":
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"not_found","message":"wallet not found"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/wallets/w-1/addresses/0xB0b/contract_invocations":
		body, _ := io.ReadAll(r.Body)
		assert.Equal(f.t, walletSignature("seed", body), r.Header.Get("X-Wallet-Signature"))
		var opts InvokeOptions
		assert.NoError(f.t, json.Unmarshal(body, &opts))
		assert.Equal(f.t, "transferTicket", opts.Method)
		assert.True(f.t, opts.Gasless)
		if f.finalStatus == statusNoInvocationID {
			w.Write([]byte(`{"status":"pending"}`))
			return
		}
		w.Write([]byte(`{"id":"inv-1","status":"pending"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/wallets/w-1/addresses/0xB0b/contract_invocations/inv-1":
		if f.polls.Add(1) < 2 {
			w.Write([]byte(`{"id":"inv-1","status":"broadcast"}`))
			return
		}
		if f.finalStatus == StatusFailed {
			w.Write([]byte(`{"id":"inv-1","status":"failed","error":"execution reverted"}`))
			return
		}
		if f.finalStatus == statusNoHash {
			w.Write([]byte(`{"id":"inv-1","status":"complete"}`))
			return
		}
		w.Write([]byte(`{"id":"inv-1","status":"complete","transactionHash":"0xdeadbeef"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/wallets/w-1/addresses/0xB0b/balances/eth":
		w.Write([]byte(`{"asset":"eth","amount":"0.125"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/wallets/w-1/addresses/0xB0b/faucet":
		w.Write([]byte(`{"transactionHash":"0xfa0cet"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"not_found","message":"no route"}`))
	}
}

func newTestClient(t *testing.T, finalStatus string) *Client {
	t.Helper()
	c, _ := newTestClientWithAPI(t, finalStatus, 0)
	return c
}

func newTestClientWithAPI(t *testing.T, finalStatus string, descriptorTTL time.Duration) (*Client, *fakeWalletAPI) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	api := &fakeWalletAPI{t: t, public: &key.PublicKey, finalStatus: finalStatus}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		BaseURL:          srv.URL,
		APIKeyName:       "organizations/test/apiKeys/key-1",
		APIKeyPrivateKey: strings.ReplaceAll(string(keyPEM), "\n", `\n`),
		NetworkID:        "base-sepolia",
		Timeout:          5 * time.Second,
		PollInterval:     10 * time.Millisecond,
		DescriptorTTL:    descriptorTTL,
	})
	require.NoError(t, err)
	return c, api
}

func TestClientInvokeAndWait(t *testing.T) {
	c := newTestClient(t, StatusComplete)
	ctx := context.Background()

	w, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)
	assert.Equal(t, "0xB0b", w.DefaultAddress)

	pending, err := w.InvokeContract(ctx, InvokeOptions{
		ContractAddress: "0xManager",
		Method:          "transferTicket",
		Args:            map[string]any{"tokenId": "7"},
		Gasless:         true,
	})
	require.NoError(t, err)

	final, err := pending.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", final.TransactionHash())
}

func TestClientInvocationFailed(t *testing.T) {
	c := newTestClient(t, StatusFailed)
	ctx := context.Background()

	w, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)
	pending, err := w.InvokeContract(ctx, InvokeOptions{Method: "transferTicket", Gasless: true})
	require.NoError(t, err)

	_, err = pending.Wait(ctx)
	var failed *InvocationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "execution reverted", failed.Reason)
}

func TestClientWaitHonoursCancellation(t *testing.T) {
	c := newTestClient(t, StatusComplete)
	w, err := c.Open(context.Background(), Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)
	pending, err := w.InvokeContract(context.Background(), InvokeOptions{Method: "transferTicket", Gasless: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientBalanceAndFaucet(t *testing.T) {
	c := newTestClient(t, StatusComplete)
	ctx := context.Background()
	w, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)

	bal, err := w.Balance(ctx, "eth")
	require.NoError(t, err)
	assert.Equal(t, "0.125", bal.String())

	hash, err := w.RequestFaucetFunds(ctx, "eth")
	require.NoError(t, err)
	assert.Equal(t, "0xfa0cet", hash)
}

func TestClientOpenErrors(t *testing.T) {
	c := newTestClient(t, StatusComplete)

	_, err := c.Open(context.Background(), Material{WalletID: "missing", Seed: "seed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet not found")

	_, err = c.Open(context.Background(), Material{WalletID: "w-1", Seed: "seed", NetworkID: "base"})
	assert.ErrorContains(t, err, "expected base")
}

func TestClientCachesWalletDescriptors(t *testing.T) {
	c, api := newTestClientWithAPI(t, StatusComplete, time.Minute)
	ctx := context.Background()

	first, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)
	second, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "other"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), api.opens.Load())
	assert.Equal(t, first.DefaultAddress, second.DefaultAddress)
	assert.Equal(t, "other", second.seed, "seeds always come from the caller")

	uncached, api := newTestClientWithAPI(t, StatusComplete, -1)
	for range 2 {
		_, err := uncached.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), api.opens.Load())
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "::bad"})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{BaseURL: "https://api.example.com", APIKeyName: "k", APIKeyPrivateKey: "not a pem"})
	assert.ErrorContains(t, err, "invalid wallet API private key")
}

func TestClientRejectsInvocationWithoutID(t *testing.T) {
	c, api := newTestClientWithAPI(t, statusNoInvocationID, 0)
	ctx := context.Background()

	w, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)

	pending, err := w.InvokeContract(ctx, InvokeOptions{Method: "transferTicket", Gasless: true})
	assert.Nil(t, pending)
	assert.ErrorContains(t, err, "no invocation id")
	assert.Zero(t, api.polls.Load())
}

func TestClientRejectsCompletionWithoutHash(t *testing.T) {
	c := newTestClient(t, statusNoHash)
	ctx := context.Background()

	w, err := c.Open(ctx, Material{WalletID: "w-1", Seed: "seed"})
	require.NoError(t, err)
	pending, err := w.InvokeContract(ctx, InvokeOptions{Method: "transferTicket", Gasless: true})
	require.NoError(t, err)

	final, err := pending.Wait(ctx)
	assert.Nil(t, final)
	assert.ErrorContains(t, err, "completed without a transaction hash")
}
