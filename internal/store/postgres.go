package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/gemba/internal/retrieval"
	"github.com/kiranshivaraju/gemba/pkg/models"
)

// DefaultCorpusLimit bounds the rows read per corpus query.
const DefaultCorpusLimit = 1000

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool        *pgxpool.Pool
	corpusLimit int
	logger      *slog.Logger
}

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithCorpusLimit caps the number of most recent incidents considered per query.
func WithCorpusLimit(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.corpusLimit = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	s := &PostgresStore{pool: pool, corpusLimit: DefaultCorpusLimit, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Incident corpus ---

// issueRow mirrors one gemba_issues row. Every text column is nullable.
type issueRow struct {
	ID               int64
	Area             string
	Problem          string
	RootCause        string
	Category         string
	TemporaryAction  string
	PreventiveAction string
}

func (s *PostgresStore) BaseRecords(ctx context.Context, area, category string) ([]models.BaseRecord, error) {
	rows, err := s.queryIssues(ctx, area, category, false)
	if err != nil {
		return nil, fmt.Errorf("%w: base records: %w", retrieval.ErrCorpusUnavailable, err)
	}

	records := make([]models.BaseRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := models.NewBaseRecord(r.Area, r.Problem, r.RootCause, r.Category)
		if err != nil {
			s.logger.Debug("skipping incomplete incident", "id", r.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) ActionRecords(ctx context.Context, area, category string) ([]models.ActionRecord, error) {
	rows, err := s.queryIssues(ctx, area, category, true)
	if err != nil {
		return nil, fmt.Errorf("%w: action records: %w", retrieval.ErrCorpusUnavailable, err)
	}

	records := make([]models.ActionRecord, 0, len(rows))
	for _, r := range rows {
		base, err := models.NewBaseRecord(r.Area, r.Problem, r.RootCause, r.Category)
		if err != nil {
			s.logger.Debug("skipping incomplete incident", "id", r.ID, "error", err)
			continue
		}
		rec, err := models.NewActionRecord(base, r.TemporaryAction, r.PreventiveAction)
		if err != nil {
			s.logger.Debug("skipping incident without actions", "id", r.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *PostgresStore) queryIssues(ctx context.Context, area, category string, withActions bool) ([]issueRow, error) {
	conditions := []string{
		"problem IS NOT NULL",
		"root_cause IS NOT NULL",
	}
	var args []any
	argIdx := 1

	if area = strings.TrimSpace(area); area != "" {
		conditions = append(conditions, fmt.Sprintf(`area ILIKE '%%' || $%d || '%%' ESCAPE '\'`, argIdx))
		args = append(args, escapeLike(area))
		argIdx++
	}
	if category = strings.TrimSpace(category); category != "" {
		conditions = append(conditions, fmt.Sprintf(`category ILIKE '%%' || $%d || '%%' ESCAPE '\'`, argIdx))
		args = append(args, escapeLike(category))
		argIdx++
	}
	if withActions {
		conditions = append(conditions, "temporary_action IS NOT NULL", "preventive_action IS NOT NULL")
	}

	query := fmt.Sprintf(
		`SELECT id, COALESCE(area, ''), COALESCE(problem, ''), COALESCE(root_cause, ''), COALESCE(category, ''),
		        COALESCE(temporary_action, ''), COALESCE(preventive_action, '')
		 FROM gemba_issues WHERE %s
		 ORDER BY issue_date DESC NULLS LAST, id DESC
		 LIMIT $%d`, strings.Join(conditions, " AND "), argIdx)
	args = append(args, s.corpusLimit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []issueRow
	for rows.Next() {
		var r issueRow
		if err := rows.Scan(&r.ID, &r.Area, &r.Problem, &r.RootCause, &r.Category,
			&r.TemporaryAction, &r.PreventiveAction); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListAreas returns the distinct non-blank areas in alphabetical order.
func (s *PostgresStore) ListAreas(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT TRIM(area) AS area FROM gemba_issues
		 WHERE area IS NOT NULL AND TRIM(area) <> '' ORDER BY area`)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	areas := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// --- API Keys ---

const apiKeyColumns = `id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at`

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	return collectAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return collectAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// escapeLike escapes the LIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var (
	_ Store            = (*PostgresStore)(nil)
	_ retrieval.Corpus = (*PostgresStore)(nil)
)
