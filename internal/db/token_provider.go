package db

import (
	"context"
	"time"
)

// TokenProvider abstracts cloud token acquisition for database authentication.
// The token replaces the password for the connection it was acquired for.
type TokenProvider interface {
	// GetToken acquires a short-lived token and returns it with its expiry time.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It never includes secrets.
	String() string
}

// tokenExpiryWarning is the remaining lifetime below which a freshly
// acquired token is reported.
const tokenExpiryWarning = 5 * time.Minute
