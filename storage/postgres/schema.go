package postgres

// schema creates the row table; %s is the sanitized table identifier
const schema = `
CREATE TABLE IF NOT EXISTS %s (
	row_index  BIGSERIAL   PRIMARY KEY,
	cells      TEXT[]      NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
