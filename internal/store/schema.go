package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analyses (
    id                   TEXT PRIMARY KEY,
    account_number       TEXT NOT NULL,
    billing_period       TEXT NOT NULL,
    total_amount         REAL NOT NULL,
    line_count           INTEGER NOT NULL,
    variant              TEXT,
    recommended_plan     TEXT,
    est_monthly_savings  REAL,
    source_path          TEXT,
    payload              TEXT NOT NULL,
    created_at           TEXT NOT NULL,
    UNIQUE (account_number, billing_period, total_amount)
);

CREATE TABLE IF NOT EXISTS analysis_categories (
    analysis_id          TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    category             TEXT NOT NULL,
    total                REAL NOT NULL,
    PRIMARY KEY (analysis_id, category)
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    analysis_id          TEXT
);

CREATE INDEX IF NOT EXISTS idx_analyses_account ON analyses(account_number);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
`
