package db

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS emails (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		snippet TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		amount TEXT,
		category TEXT NOT NULL DEFAULT 'Uncategorized',
		status TEXT NOT NULL DEFAULT 'new',
		drive_file_id TEXT,
		drive_file_url TEXT,
		received_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails (received_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_category ON emails (category)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_sender_email ON emails (sender_email)`,
	`CREATE TABLE IF NOT EXISTS labels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS email_labels (
		email_id TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		label_id INTEGER NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
		PRIMARY KEY (email_id, label_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_email_labels_label_id ON email_labels (label_id)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		email_id TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_email_id ON attachments (email_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS emails (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		snippet TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL,
		sender_email TEXT NOT NULL,
		amount NUMERIC,
		category TEXT NOT NULL DEFAULT 'Uncategorized',
		status TEXT NOT NULL DEFAULT 'new',
		drive_file_id TEXT,
		drive_file_url TEXT,
		received_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails (received_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_category ON emails (category)`,
	`CREATE INDEX IF NOT EXISTS idx_emails_sender_email ON emails (sender_email)`,
	`CREATE TABLE IF NOT EXISTS labels (
		id BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS email_labels (
		email_id TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		label_id BIGINT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
		PRIMARY KEY (email_id, label_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_email_labels_label_id ON email_labels (label_id)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		email_id TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_email_id ON attachments (email_id)`,
}
