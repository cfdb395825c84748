package store

import "fmt"

// Migrations are ordered statement lists, one per driver. Statements must be
// idempotent; they run on every startup.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER REFERENCES users(id),
		company TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		owner TEXT NOT NULL DEFAULT '',
		fuel TEXT NOT NULL DEFAULT '',
		seller_type TEXT NOT NULL DEFAULT '',
		transmission TEXT NOT NULL DEFAULT '',
		km_driven INTEGER NOT NULL DEFAULT 0,
		mileage_mpg REAL NOT NULL DEFAULT 0,
		engine_cc INTEGER NOT NULL DEFAULT 0,
		max_power_bhp REAL NOT NULL DEFAULT 0,
		torque_nm REAL NOT NULL DEFAULT 0,
		seats INTEGER NOT NULL DEFAULT 0,
		predicted_price REAL NOT NULL,
		model_version TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_user_id ON predictions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS predictions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT REFERENCES users(id),
		company TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		owner TEXT NOT NULL DEFAULT '',
		fuel TEXT NOT NULL DEFAULT '',
		seller_type TEXT NOT NULL DEFAULT '',
		transmission TEXT NOT NULL DEFAULT '',
		km_driven BIGINT NOT NULL DEFAULT 0,
		mileage_mpg DOUBLE PRECISION NOT NULL DEFAULT 0,
		engine_cc BIGINT NOT NULL DEFAULT 0,
		max_power_bhp DOUBLE PRECISION NOT NULL DEFAULT 0,
		torque_nm DOUBLE PRECISION NOT NULL DEFAULT 0,
		seats BIGINT NOT NULL DEFAULT 0,
		predicted_price DOUBLE PRECISION NOT NULL,
		model_version TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_predictions_user_id ON predictions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at)`,
}

func (s *Store) migrate() error {
	var migrations []string
	switch s.driver {
	case "sqlite":
		migrations = sqliteMigrations
	case "postgres":
		migrations = postgresMigrations
	}

	for i, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
