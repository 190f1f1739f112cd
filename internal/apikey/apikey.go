// Package apikey creates and verifies the API keys that guard the HTTP API.
package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

const (
	// KeyPrefix starts every generated key.
	KeyPrefix = "gk_"
	// PrefixLen is the number of leading characters stored in clear for lookup.
	PrefixLen = 8

	secretBytes = 24
)

var ErrInvalidKey = errors.New("api key is too short")

// Store is the subset of store.Store needed to manage keys.
type Store interface {
	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

// Generate returns a new random raw key.
func Generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(b), nil
}

// PrefixOf returns the lookup prefix of raw, or "" when raw is too short.
func PrefixOf(raw string) string {
	if len(raw) < PrefixLen {
		return ""
	}
	return raw[:PrefixLen]
}

func Hash(raw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(h), nil
}

func Verify(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// New builds a stored key record for raw. The raw key itself is not kept.
func New(raw, name string, scopes []string) (*models.APIKey, error) {
	prefix := PrefixOf(raw)
	if prefix == "" {
		return nil, ErrInvalidKey
	}
	hash, err := Hash(raw)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		Name:      name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Lookup returns the active key matching raw, or nil.
func Lookup(ctx context.Context, s Store, raw string) (*models.APIKey, error) {
	prefix := PrefixOf(raw)
	if prefix == "" {
		return nil, nil
	}
	keys, err := s.GetAPIKeyByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if Verify(k.KeyHash, raw) {
			return k, nil
		}
	}
	return nil, nil
}

// EnsureBootstrap stores raw as an admin key unless an active key already matches it.
// It reports whether a key was created.
func EnsureBootstrap(ctx context.Context, s Store, raw string) (bool, error) {
	existing, err := Lookup(ctx, s, raw)
	if err != nil {
		return false, fmt.Errorf("look up bootstrap key: %w", err)
	}
	if existing != nil {
		return false, nil
	}
	key, err := New(raw, "bootstrap", []string{models.ScopeAdmin})
	if err != nil {
		return false, err
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		return false, fmt.Errorf("create bootstrap key: %w", err)
	}
	return true, nil
}
