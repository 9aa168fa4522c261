package persistence

// schemaSQL is deliberately driver-portable: primary keys are
// application-generated UUID strings (no AUTOINCREMENT/SERIAL), and
// timestamps are stored as RFC3339 text, so the same statement runs
// unmodified against both sqlite3 and postgres.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS world_saves (
	id               TEXT PRIMARY KEY,
	owner_account_id TEXT NOT NULL,
	name             TEXT NOT NULL,
	seed             TEXT NOT NULL DEFAULT '',
	world_data       TEXT NOT NULL DEFAULT '{}',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS characters (
	id               TEXT PRIMARY KEY,
	account_id       TEXT NOT NULL,
	world_id         TEXT NOT NULL,
	name             TEXT NOT NULL,
	x                INTEGER NOT NULL,
	y                INTEGER NOT NULL,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	UNIQUE(account_id, world_id)
);
`
