package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. The unique and check
// constraints duplicate the invariants the services enforce in code, so a
// bug above this layer still cannot corrupt the rotation or double-pay a
// cycle.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    contribution_amount REAL NOT NULL CHECK (contribution_amount > 0),
    frequency TEXT NOT NULL CHECK (frequency IN ('weekly','monthly')),
    start_date TEXT NOT NULL,
    duration_cycles INTEGER NOT NULL CHECK (duration_cycles > 0),
    max_members INTEGER NOT NULL CHECK (max_members > 0),
    status TEXT NOT NULL CHECK (status IN ('forming','active','paused','completed','cancelled')),
    created_by TEXT NOT NULL,
    invitation_code TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL CHECK (role IN ('admin','member')),
    status TEXT NOT NULL CHECK (status IN ('active','pending','suspended','removed')),
    payment_position INTEGER CHECK (payment_position IS NULL OR payment_position > 0),
    join_date INTEGER NOT NULL,
    UNIQUE (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_members_active_position
    ON members(group_id, payment_position)
    WHERE status = 'active' AND payment_position IS NOT NULL;

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    cycle INTEGER NOT NULL CHECK (cycle > 0),
    amount REAL NOT NULL CHECK (amount > 0),
    due_date TEXT NOT NULL,
    paid_date TEXT,
    payment_method TEXT,
    status TEXT NOT NULL CHECK (status IN ('pending','paid','overdue','cancelled')),
    created_at INTEGER NOT NULL,
    UNIQUE (group_id, user_id, cycle),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS distributions (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    recipient_id TEXT NOT NULL,
    cycle INTEGER NOT NULL CHECK (cycle > 0),
    amount REAL NOT NULL,
    expected_amount REAL NOT NULL,
    distribution_date TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
    notes TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_distributions_completed_cycle
    ON distributions(group_id, cycle)
    WHERE status = 'completed';

CREATE TABLE IF NOT EXISTS invitations (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    group_id TEXT NOT NULL,
    inviter_id TEXT NOT NULL,
    invitee_email TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('pending','accepted','declined','expired')),
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_members_group_id ON members(group_id);
CREATE INDEX IF NOT EXISTS idx_contributions_group_cycle ON contributions(group_id, cycle);
CREATE INDEX IF NOT EXISTS idx_contributions_user_id ON contributions(user_id);
CREATE INDEX IF NOT EXISTS idx_contributions_status_due ON contributions(status, due_date);
CREATE INDEX IF NOT EXISTS idx_distributions_group_id ON distributions(group_id);
CREATE INDEX IF NOT EXISTS idx_distributions_recipient_id ON distributions(recipient_id);
CREATE INDEX IF NOT EXISTS idx_invitations_group_id ON invitations(group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
