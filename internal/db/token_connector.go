package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/dbfill/internal/logging"
	"github.com/vvka-141/dbfill/pkg/dbfill"
)

// TokenBasedConnector connects to cloud providers that authenticate via
// short-lived tokens (AWS IAM, Azure Entra ID). The token is acquired from
// a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *dbfill.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        dbfill.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *dbfill.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger dbfill.Logger) *TokenBasedConnector {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
	}
}

// Connect acquires a token and opens a pool with it.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr, err := c.connectionString(ctx)
	if err != nil {
		return nil, err
	}
	return openPool(ctx, connStr, c.config, nil)
}

func (c *TokenBasedConnector) connectionString(ctx context.Context) (string, error) {
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
	}
	c.logger.Verbose("Acquired %s token from %s", c.providerName, c.tokenProvider)

	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
		c.logger.Warn("%s token expires in %v", c.providerName, remaining.Round(time.Second))
	}

	configWithToken := *c.config
	configWithToken.Password = token
	return BuildConnectionString(&configWithToken), nil
}
