package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"tip-chain.backend/internal/config"
	"tip-chain.backend/pkg/jwt"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("relay-token", flag.ContinueOnError)
	relay := fs.String("relay", "", "relay name stored as the token subject")
	ttl := fs.Duration("ttl", 0, "token lifetime (0 uses RELAY_TOKEN_TTL)")
	genSecret := fs.Bool("gen-secret", false, "print a new RELAY_JWT_SECRET and exit")
	hexLen := fs.Int("hex-len", 64, "secret hex length (must be even)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *genSecret {
		if err := validateHexLen(*hexLen); err != nil {
			return err
		}
		secret, err := generateRandomHex(*hexLen)
		if err != nil {
			return fmt.Errorf("failed to generate secret: %w", err)
		}
		fmt.Fprintf(out, "RELAY_JWT_SECRET=%s\n", secret)
		return nil
	}

	_ = loadDotenv()
	cfg := loadCfg()
	token, err := issueToken(cfg.Relay, *relay, *ttl)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Generated relay token")
	fmt.Fprintf(out, "RELAY=%s\n", *relay)
	fmt.Fprintf(out, "TOKEN=%s\n", token)
	return nil
}

func issueToken(cfg config.RelayConfig, relay string, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("RELAY_JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = cfg.TokenTTL
	}
	return jwt.NewRelayTokenService(cfg.Secret, cfg.Issuer, ttl).Issue(relay)
}

func validateHexLen(n int) error {
	if n <= 0 || n%2 != 0 {
		return fmt.Errorf("invalid hex-len: %d (must be positive and even)", n)
	}
	return nil
}

func generateRandomHex(n int) (string, error) {
	b := make([]byte, n/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
