package attemptstore

// verified is a nullable boolean: NULL means nobody checked the result.
const schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL,
    script TEXT NOT NULL,
    succeeded BOOLEAN NOT NULL,
    verified BOOLEAN,
    error_message TEXT,
    feedback TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_attempts_command ON attempts(command, id);
`
