package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the incentive store.
var Migrations = migrate.NewGroup("incentive")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_incentive_accounts",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS incentive_accounts (
    user_id         TEXT PRIMARY KEY,
    level           INT NOT NULL DEFAULT 1,
    locked_points   BIGINT NOT NULL DEFAULT 0,
    locked_maturity TIMESTAMPTZ,
    debt            BIGINT NOT NULL DEFAULT 0,
    total_loans     BIGINT NOT NULL DEFAULT 0,
    eligible_loans  BIGINT NOT NULL DEFAULT 0,
    on_time_repays  BIGINT NOT NULL DEFAULT 0,
    total_volume    BIGINT NOT NULL DEFAULT 0,
    last_activity   TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_incentive_accounts_level ON incentive_accounts (level);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS incentive_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_incentive_order_locks",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS incentive_order_locks (
    order_id   TEXT PRIMARY KEY,
    id         TEXT NOT NULL DEFAULT '',
    borrower   TEXT NOT NULL DEFAULT '',
    points     BIGINT NOT NULL DEFAULT 0,
    maturity   TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_incentive_locks_borrower ON incentive_order_locks (borrower);
CREATE INDEX IF NOT EXISTS idx_incentive_locks_maturity ON incentive_order_locks (maturity);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS incentive_order_locks`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_incentive_consumptions",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS incentive_consumptions (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL DEFAULT '',
    service    INT NOT NULL DEFAULT 0,
    level      INT NOT NULL DEFAULT 0,
    kind       TEXT NOT NULL DEFAULT 'purchase',
    points     BIGINT NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_incentive_cons_user ON incentive_consumptions (user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_incentive_cons_active ON incentive_consumptions (user_id, expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS incentive_consumptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_incentive_cooldowns",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS incentive_cooldowns (
    cooldown_key TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL DEFAULT '',
    service      INT NOT NULL DEFAULT 0,
    stamped_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_incentive_cooldowns_user ON incentive_cooldowns (user_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS incentive_cooldowns`)
				return err
			},
		},
	)
}
