package webserver

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
)

// decodeAddress converts a base58 wallet address to the raw 32-byte ed25519
// public key. Hex-encoded keys (0x...) are accepted for tooling.
func decodeAddress(addr string) ([]byte, error) {
	if strings.HasPrefix(addr, "0x") {
		return hex.DecodeString(addr[2:])
	}
	raw, err := base58.Decode(addr)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("invalid address")
	}
	return raw, nil
}

func strip0x(s string) string {
	if len(s) > 1 && s[:2] == "0x" {
		return s[2:]
	}
	return s
}

// verifySignature checks an ed25519 signature over the challenge nonce.
// The signature may be base58 (wallet default) or hex encoded.
func verifySignature(addr, sig, nonce string) error {
	pubKey, err := decodeAddress(addr)
	if err != nil {
		return err
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key length: %d", len(pubKey))
	}

	sigBytes, err := base58.Decode(sig)
	if err != nil {
		sigBytes, err = hex.DecodeString(strip0x(sig))
		if err != nil {
			return fmt.Errorf("undecodable signature")
		}
	}
	if len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length: %d", len(sigBytes))
	}

	if !ed25519.Verify(ed25519.PublicKey(pubKey), []byte(nonce), sigBytes) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

func issueJWT(addr string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"addr": addr,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString(secret)
}
