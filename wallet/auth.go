package wallet

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenLifetime = 2 * time.Minute

// apiKey signs short-lived ES256 bearer tokens for the wallet API. Each
// token is bound to a single "METHOD host/path" URI.
type apiKey struct {
	name   string
	signer *ecdsa.PrivateKey
}

func parseAPIKey(name, privateKeyPEM string) (*apiKey, error) {
	if name == "" {
		return nil, fmt.Errorf("wallet API key name is required")
	}
	// Keys pasted into env files usually carry literal \n sequences.
	pem := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	signer, err := jwt.ParseECPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet API private key: %w", err)
	}
	return &apiKey{name: name, signer: signer}, nil
}

func (k *apiKey) token(method, host, path string, now time.Time) (string, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate token nonce: %w", err)
	}

	claims := jwt.MapClaims{
		"sub": k.name,
		"iss": "cdp",
		"nbf": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
		"uri": fmt.Sprintf("%s %s%s", method, host, path),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = k.name
	tok.Header["nonce"] = hex.EncodeToString(nonce)

	signed, err := tok.SignedString(k.signer)
	if err != nil {
		return "", fmt.Errorf("failed to sign wallet API token: %w", err)
	}
	return signed, nil
}

// walletSignature proves possession of the wallet seed for a request body
// without sending the seed.
func walletSignature(seed string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(seed))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
