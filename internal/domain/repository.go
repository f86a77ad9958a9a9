package domain

import (
	"context"
	"time"
)

// Repository is the store for versionable static configuration: heuristic
// rules and weight profiles. It is read at process start and never written
// during request handling; submissions and verdicts are not persisted.
type Repository interface {
	// Heuristic rule operations
	SaveHeuristicRule(ctx context.Context, rule *HeuristicRule) error
	GetHeuristicRule(ctx context.Context, ruleID string) (*HeuristicRule, error)
	ListHeuristicRules(ctx context.Context) ([]*HeuristicRule, error)

	// Weight profile operations
	SaveWeightProfiles(ctx context.Context, profiles *WeightProfiles) error
	GetWeightProfiles(ctx context.Context) (*WeightProfiles, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
