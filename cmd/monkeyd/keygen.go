package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"monkeydao/config"
	"monkeydao/crypto"
)

// runKeygen implements `monkeyd keygen`. It writes a fresh secp256k1 key,
// prints the monk1 address to use as a JWT subject and, when -token is set,
// a gateway token signed with the configured HMAC secret.
func runKeygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(out)
	keyFile := fs.String("out", "wallet.key", "path to write the private key")
	cfgPath := fs.String("config", "./monkey.toml", "node configuration holding the gateway auth secret")
	withToken := fs.Bool("token", false, "also print a signed gateway token for the new address")
	ttl := fs.Duration("ttl", 24*time.Hour, "lifetime of the issued token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*keyFile, []byte(hex.EncodeToString(key.Bytes())), 0o600); err != nil {
		return fmt.Errorf("save key to %s: %w", *keyFile, err)
	}
	address := key.PubKey().Address().String()
	fmt.Fprintf(out, "Generated new key and saved to %s\n", *keyFile)
	fmt.Fprintf(out, "Address: %s\n", address)
	if !*withToken {
		return nil
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	token, err := issueToken(cfg.Auth, address, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Token: %s\n", token)
	return nil
}

// issueToken signs an HS256 token for subject that the gateway authenticator
// accepts under auth.
func issueToken(auth config.Auth, subject string, ttl time.Duration, now time.Time) (string, error) {
	secret := strings.TrimSpace(auth.HMACSecret)
	if secret == "" {
		return "", errors.New("keygen: gateway auth secret is not configured")
	}
	if ttl <= 0 {
		return "", errors.New("keygen: token ttl must be positive")
	}
	if _, err := crypto.ParseAccount(subject); err != nil {
		return "", fmt.Errorf("keygen: invalid subject: %w", err)
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if auth.Issuer != "" {
		claims.Issuer = auth.Issuer
	}
	if auth.Audience != "" {
		claims.Audience = jwt.ClaimStrings{auth.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
