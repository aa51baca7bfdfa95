package sqlite

// Amounts are kept as TEXT and summed in Go so no digits are lost to
// SQLite's floating-point REAL affinity.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS recurring_rules (
    id                   TEXT PRIMARY KEY,
    account_id           TEXT NOT NULL,
    name                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    frequency            TEXT NOT NULL,
    start_date           TEXT NOT NULL,
    end_date             TEXT,
    is_active            INTEGER NOT NULL DEFAULT 1,
    created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id                   TEXT PRIMARY KEY,
    account_id           TEXT NOT NULL,
    date                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    description          TEXT NOT NULL DEFAULT '',
    merchant             TEXT NOT NULL DEFAULT '',
    hash_id              TEXT NOT NULL UNIQUE,
    status               TEXT NOT NULL DEFAULT 'REAL',
    created_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_account ON recurring_rules(account_id, is_active, start_date);
CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date);
`
