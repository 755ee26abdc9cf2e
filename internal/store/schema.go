package store

const schema = `
CREATE TABLE IF NOT EXISTS sets (
    label TEXT PRIMARY KEY,
    origin_x INTEGER NOT NULL,
    origin_y INTEGER NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    process TEXT,
    title TEXT,
    saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
    id TEXT NOT NULL,
    set_label TEXT NOT NULL,
    position INTEGER NOT NULL,
    value TEXT NOT NULL,
    kind TEXT NOT NULL,
    rel_x REAL NOT NULL CHECK (rel_x >= 0 AND rel_x <= 1),
    rel_y REAL NOT NULL CHECK (rel_y >= 0 AND rel_y <= 1),
    abs_x INTEGER,
    abs_y INTEGER,
    method TEXT NOT NULL,
    captured_at TEXT NOT NULL,
    PRIMARY KEY (set_label, id),
    FOREIGN KEY (set_label) REFERENCES sets(label) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_set ON entries(set_label, position);
CREATE INDEX IF NOT EXISTS idx_entries_method ON entries(set_label, method);
`
