package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL for the tables owned by this service.  Capacity
// counters live on the albums row itself rather than being derived by
// counting child rows, so that a reservation is a single conditional
// UPDATE.  All timestamps are stored in UTC.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS albums (
		id               VARCHAR(64)  NOT NULL,
		slug             VARCHAR(190) NOT NULL,
		email_gate_enabled TINYINT(1) NOT NULL DEFAULT 1,
		unlock_count     INT UNSIGNED NOT NULL DEFAULT 0,
		active_pin_count INT UNSIGNED NOT NULL DEFAULT 0,
		max_unlocks      INT UNSIGNED NOT NULL,
		max_active_pins  INT UNSIGNED NOT NULL,
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_albums_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS access_records (
		id          CHAR(36)     NOT NULL,
		album_id    VARCHAR(64)  NOT NULL,
		email       VARCHAR(190) NOT NULL,
		verified    TINYINT(1)   NOT NULL DEFAULT 0,
		verified_at DATETIME     NULL,
		unlocked    TINYINT(1)   NOT NULL DEFAULT 0,
		unlocked_at DATETIME     NULL,
		remaining   INT          NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_access_album_email (album_id, email),
		CONSTRAINT fk_access_album FOREIGN KEY (album_id) REFERENCES albums (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS verifications (
		id         CHAR(36)     NOT NULL,
		album_id   VARCHAR(64)  NOT NULL,
		email      VARCHAR(190) NOT NULL,
		code       CHAR(6)      NOT NULL,
		expires_at DATETIME     NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_verifications_pair (album_id, email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS pins (
		id         CHAR(36) NOT NULL,
		access_id  CHAR(36) NOT NULL,
		pin_code   CHAR(6)  NOT NULL,
		used       TINYINT(1) NOT NULL DEFAULT 0,
		used_at    DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_pins_access_used (access_id, used, created_at),
		CONSTRAINT fk_pins_access FOREIGN KEY (access_id) REFERENCES access_records (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the service tables when they do not exist yet.
// Statements are idempotent, so running it on every boot is safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
