package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ktassist/pkg/auth"
)

// DefaultCredentialsKey is where the identity to password-hash map lives.
const DefaultCredentialsKey = "auth/credentials.json"

// CredentialRegistry keeps every registered identity in one JSON object.
// Register rewrites the whole object without locking, so two concurrent
// registrations can drop one of the writes.
type CredentialRegistry struct {
	objects ObjectStore
	key     string
}

// NewCredentialRegistry binds a registry to an object key.
func NewCredentialRegistry(objects ObjectStore, key string) *CredentialRegistry {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultCredentialsKey
	}
	return &CredentialRegistry{objects: objects, key: key}
}

// Load reads the full mapping. A missing object is an empty mapping.
func (c *CredentialRegistry) Load(ctx context.Context) (map[string]string, error) {
	data, found, err := c.objects.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	creds := make(map[string]string)
	if !found || len(bytes.TrimSpace(data)) == 0 {
		return creds, nil
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

// Register hashes the password and stores it for email.
func (c *CredentialRegistry) Register(ctx context.Context, email, password string) error {
	creds, err := c.Load(ctx)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	creds[auth.NormalizeEmail(email)] = hash
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := c.objects.Put(ctx, c.key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Verify reports whether email is registered and whether password matches.
func (c *CredentialRegistry) Verify(ctx context.Context, email, password string) (known bool, ok bool, err error) {
	creds, err := c.Load(ctx)
	if err != nil {
		return false, false, err
	}
	hash, known := creds[auth.NormalizeEmail(email)]
	if !known {
		return false, false, nil
	}
	return true, auth.CheckPassword(password, hash), nil
}
