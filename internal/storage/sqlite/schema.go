package sqlite

import "github.com/steveyegge/taxon/internal/storage/migrations"

// schemaMigrations is the ordered schema history. Append only.
var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "Create tags, merge_rules and decision_events",
		Up: `
-- Tags table. parent_id is a weak reference: no foreign key, orphans are allowed.
CREATE TABLE tags (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    kind TEXT NOT NULL CHECK(kind IN ('parent', 'child')),
    confidence REAL CHECK(confidence IS NULL OR (confidence >= 0 AND confidence <= 1)),
    source TEXT NOT NULL DEFAULT '',
    parent_id TEXT,
    synonyms TEXT NOT NULL DEFAULT '[]',
    document_id TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_tags_parent ON tags(parent_id);
CREATE INDEX idx_tags_name ON tags(name);

-- Merge rules read by the classifier
CREATE TABLE merge_rules (
    id TEXT PRIMARY KEY,
    source_name TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    scope TEXT NOT NULL CHECK(scope IN ('parent', 'child')),
    merge_count INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (source_name, scope)
);

-- Append-only decision log
CREATE TABLE decision_events (
    id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    action TEXT NOT NULL,
    input_tags TEXT NOT NULL,
    user_decision TEXT NOT NULL,
    reasons TEXT NOT NULL DEFAULT '[]',
    rationale TEXT NOT NULL DEFAULT '',
    similarity_score REAL,
    time_to_decision_ms INTEGER NOT NULL DEFAULT 0,
    actor TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX idx_decision_events_timestamp ON decision_events(timestamp);
CREATE INDEX idx_decision_events_action ON decision_events(action);
`,
		Down: `
DROP TABLE decision_events;
DROP TABLE merge_rules;
DROP TABLE tags;
`,
	},
}
