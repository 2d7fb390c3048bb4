package main

import (
	"fmt"
	"os"
	"time"

	"github.com/storedir/store-directory/internal/auth"
	"github.com/storedir/store-directory/internal/config"
)

const (
	usage      = "usage: token <subject> [name] [ttl, e.g. 24h]"
	defaultTTL = 24 * time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Token error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}

	args := os.Args[1:]
	if len(args) == 0 {
		return fmt.Errorf(usage)
	}

	subject := args[0]
	name := subject
	if len(args) > 1 {
		name = args[1]
	}
	ttl := defaultTTL
	if len(args) > 2 {
		ttl, err = time.ParseDuration(args[2])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[2], err)
		}
	}

	token, err := auth.IssueToken(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, subject, name, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
