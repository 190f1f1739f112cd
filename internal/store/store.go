package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// BaseRecords and ActionRecords read the incident corpus. Area and category
	// match as case-insensitive substrings; rows missing a required field are skipped.
	BaseRecords(ctx context.Context, area, category string) ([]models.BaseRecord, error)
	ActionRecords(ctx context.Context, area, category string) ([]models.ActionRecord, error)
	ListAreas(ctx context.Context) ([]string, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}
