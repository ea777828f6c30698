package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS raw_tables (
    file_path            TEXT PRIMARY KEY,
    read_options         TEXT NOT NULL,
    row_count            INTEGER NOT NULL,
    rows_json            TEXT NOT NULL,
    file_mtime_ns        INTEGER NOT NULL,
    file_size            INTEGER NOT NULL,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL
);
`
