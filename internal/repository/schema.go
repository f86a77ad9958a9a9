package repository

// Schema definitions for the LAVS configuration store.
// Compatible with both SQLite and PostgreSQL.

const schemaHeuristicRules = `
CREATE TABLE IF NOT EXISTS heuristic_rules (
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    applies_to TEXT NOT NULL,
    expression TEXT NOT NULL,
    contribution REAL NOT NULL,
    detail TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, version)
);

CREATE INDEX IF NOT EXISTS idx_heuristic_rules_enabled ON heuristic_rules(enabled);
`

// Weight profiles are stored as one versioned YAML-equivalent JSON document;
// only the latest row is read at start.
const schemaWeightProfiles = `
CREATE TABLE IF NOT EXISTS weight_profiles (
    id INTEGER PRIMARY KEY,
    profiles TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaHeuristicRules,
		schemaWeightProfiles,
	}
}
