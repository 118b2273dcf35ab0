package setlist

import (
	"context"
)

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS setlists (
          id          TEXT PRIMARY KEY,
          name        TEXT NOT NULL,
          created_by  TEXT NOT NULL,
          status      TEXT NOT NULL DEFAULT 'draft',
          version     BIGINT NOT NULL DEFAULT 0,
          participants JSONB NOT NULL DEFAULT '[]',
          songs        JSONB NOT NULL DEFAULT '[]',
          flexible_cards     JSONB NOT NULL DEFAULT '[]',
          request_song_cards JSONB NOT NULL DEFAULT '[]',
          completed_songs              JSONB NOT NULL DEFAULT '[]',
          completed_flexible_cards     JSONB NOT NULL DEFAULT '[]',
          completed_request_song_cards JSONB NOT NULL DEFAULT '[]',
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	// at most one active setlist
	if _, err := db.Exec(ctx, `
      CREATE UNIQUE INDEX IF NOT EXISTS idx_setlists_single_active
      ON setlists (status) WHERE status = 'active'
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS profiles (
          nickname   TEXT PRIMARY KEY,
          role       TEXT NOT NULL DEFAULT 'member',
          created_at TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return err
	}

	return nil
}
