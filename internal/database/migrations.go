package database

const schema = `
CREATE TABLE IF NOT EXISTS source_messages (
    message_id TEXT NOT NULL,
    file_path TEXT NOT NULL,
    sender_name TEXT NOT NULL,
    sender_email TEXT NOT NULL,
    sent_date DATETIME NOT NULL,
    subject TEXT NOT NULL,
    format TEXT NOT NULL,
    storage_offset INTEGER,
    maildir_key TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (message_id, file_path)
);

CREATE TABLE IF NOT EXISTS extracted_items (
    item_id TEXT NOT NULL PRIMARY KEY,
    content TEXT NOT NULL,
    source_message_id TEXT NOT NULL,
    source_file_path TEXT NOT NULL,
    item_type TEXT NOT NULL,
    priority TEXT NOT NULL,
    confidence_score REAL NOT NULL,
    index_status TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    FOREIGN KEY (source_message_id, source_file_path)
        REFERENCES source_messages(message_id, file_path)
        ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS index_anomalies (
    anomaly_id TEXT NOT NULL PRIMARY KEY,
    anomaly_type TEXT NOT NULL,
    email_file_path TEXT NOT NULL,
    message_id_value TEXT,
    error_details TEXT NOT NULL,
    timestamp DATETIME NOT NULL,
    resolved BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_sent_date ON source_messages(sent_date);
CREATE INDEX IF NOT EXISTS idx_items_source ON extracted_items(source_message_id, source_file_path);
CREATE INDEX IF NOT EXISTS idx_items_created ON extracted_items(created_at);
CREATE INDEX IF NOT EXISTS idx_anomalies_path ON index_anomalies(email_file_path);
CREATE INDEX IF NOT EXISTS idx_anomalies_resolved ON index_anomalies(resolved);
`
