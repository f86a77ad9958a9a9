// Package repository provides the configuration store: heuristic rules and
// weight profiles, read at process start.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verilayer/lavs/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveHeuristicRule stores a heuristic rule, upserting on (id, version).
func (r *SQLRepository) SaveHeuristicRule(ctx context.Context, rule *domain.HeuristicRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO heuristic_rules (
			id, name, description, version, applies_to, expression,
			contribution, detail, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			applies_to = excluded.applies_to,
			expression = excluded.expression,
			contribution = excluded.contribution,
			detail = excluded.detail,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Version,
		joinContentTypes(rule.AppliesTo), rule.Expression,
		rule.Contribution, rule.Detail, enabled,
		now, now,
	)
	return err
}

// GetHeuristicRule retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetHeuristicRule(ctx context.Context, ruleID string) (*domain.HeuristicRule, error) {
	query := `
		SELECT id, name, description, version, applies_to, expression,
			   contribution, detail, enabled, created_at, updated_at
		FROM heuristic_rules
		WHERE id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	rule, err := r.scanRule(r.db.QueryRowContext(ctx, r.rebind(query), ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListHeuristicRules retrieves all enabled rules ordered by ID for
// deterministic engine loading.
func (r *SQLRepository) ListHeuristicRules(ctx context.Context) ([]*domain.HeuristicRule, error) {
	query := `
		SELECT id, name, description, version, applies_to, expression,
			   contribution, detail, enabled, created_at, updated_at
		FROM heuristic_rules
		WHERE enabled = 1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.HeuristicRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanRule(row rowScanner) (*domain.HeuristicRule, error) {
	var rule domain.HeuristicRule
	var appliesTo string
	var enabled int

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.Version,
		&appliesTo, &rule.Expression,
		&rule.Contribution, &rule.Detail, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	rule.AppliesTo = splitContentTypes(appliesTo)
	return &rule, nil
}

// SaveWeightProfiles stores the weight profile document, replacing any
// previous one.
func (r *SQLRepository) SaveWeightProfiles(ctx context.Context, profiles *domain.WeightProfiles) error {
	if err := profiles.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal weight profiles: %w", err)
	}

	query := `
		INSERT INTO weight_profiles (id, profiles, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profiles = excluded.profiles,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query), string(data), time.Now().UTC())
	return err
}

// GetWeightProfiles retrieves the stored weight profile document.
func (r *SQLRepository) GetWeightProfiles(ctx context.Context) (*domain.WeightProfiles, error) {
	query := `SELECT profiles FROM weight_profiles WHERE id = 1`

	var data string
	err := r.db.QueryRowContext(ctx, query).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var profiles domain.WeightProfiles
	if err := json.Unmarshal([]byte(data), &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse weight profiles: %w", err)
	}
	return &profiles, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func joinContentTypes(types []domain.ContentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitContentTypes(s string) []domain.ContentType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	types := make([]domain.ContentType, len(parts))
	for i, p := range parts {
		types[i] = domain.ContentType(p)
	}
	return types
}
