package db

// schemaVersion is fixed; there is no migration path.
const schemaVersion = 1

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA user_version = 1;

-- Records: one row per captured and analyzed page.
-- AUTOINCREMENT keeps ids unique even after the table is cleared.
CREATE TABLE IF NOT EXISTS records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL,
    date TEXT NOT NULL,
    timestamp TEXT NOT NULL,      -- RFC3339 UTC, fixed width, sorts chronologically
    summary TEXT NOT NULL DEFAULT '',
    keywords TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT ''
);

-- Secondary lookups (non-unique)
CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
CREATE INDEX IF NOT EXISTS idx_records_url ON records(url);
CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);
`
