package setlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the store needs. It can be mocked with
// pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps each aggregate in one row; the unit arrays are JSONB
// columns that are always rewritten in full.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const setlistColumns = `id, name, created_by, status, version, participants,
       songs, flexible_cards, request_song_cards,
       completed_songs, completed_flexible_cards, completed_request_song_cards,
       created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSetList(row rowScanner) (*SetList, error) {
	var sl SetList
	var status string
	var participants, songs, flex, req, doneSongs, doneFlex, doneReq []byte
	if err := row.Scan(
		&sl.ID, &sl.Name, &sl.CreatedBy, &status, &sl.Version, &participants,
		&songs, &flex, &req,
		&doneSongs, &doneFlex, &doneReq,
		&sl.CreatedAt, &sl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sl.Status = Status(status)
	docs := []struct {
		raw  []byte
		dest any
	}{
		{participants, &sl.Participants},
		{songs, &sl.Songs},
		{flex, &sl.FlexibleCards},
		{req, &sl.RequestSongCards},
		{doneSongs, &sl.CompletedSongs},
		{doneFlex, &sl.CompletedFlexibleCards},
		{doneReq, &sl.CompletedRequestSongCards},
	}
	for _, d := range docs {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dest); err != nil {
			return nil, fmt.Errorf("decode setlist %s: %w", sl.ID, err)
		}
	}
	return &sl, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*SetList, error) {
	sl, err := scanSetList(s.db.QueryRow(ctx, `
        SELECT `+setlistColumns+`
        FROM setlists
        WHERE id = $1
    `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("setlist %q not found", id)
	}
	if err != nil {
		return nil, persistence("load setlist", err)
	}
	return sl, nil
}

func (s *PostgresStore) Put(ctx context.Context, id string, expectedVersion int64, patch Patch) (int64, error) {
	setParts := []string{}
	args := []any{id, expectedVersion}
	var encErr error
	setDoc := func(col string, v any) {
		if encErr != nil {
			return
		}
		raw, err := sanitizeDocument(v)
		if err != nil {
			encErr = err
			return
		}
		args = append(args, raw)
		setParts = append(setParts, col+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Participants != nil {
		setDoc("participants", *patch.Participants)
	}
	if patch.Songs != nil {
		setDoc("songs", *patch.Songs)
	}
	if patch.FlexibleCards != nil {
		setDoc("flexible_cards", *patch.FlexibleCards)
	}
	if patch.RequestSongCards != nil {
		setDoc("request_song_cards", *patch.RequestSongCards)
	}
	if patch.CompletedSongs != nil {
		setDoc("completed_songs", *patch.CompletedSongs)
	}
	if patch.CompletedFlexibleCards != nil {
		setDoc("completed_flexible_cards", *patch.CompletedFlexibleCards)
	}
	if patch.CompletedRequestSongCards != nil {
		setDoc("completed_request_song_cards", *patch.CompletedRequestSongCards)
	}
	if encErr != nil {
		return 0, validationError("encode patch: %v", encErr)
	}
	if patch.Status != nil {
		args = append(args, string(*patch.Status))
		setParts = append(setParts, "status = $"+strconv.Itoa(len(args)))
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	args = append(args, updatedAt)
	setParts = append(setParts, "updated_at = $"+strconv.Itoa(len(args)))

	query := "UPDATE setlists SET " + strings.Join(setParts, ", ") +
		", version = version + 1 WHERE id = $1 AND version = $2 RETURNING version"

	var version int64
	err := s.db.QueryRow(ctx, query, args...).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM setlists WHERE id = $1)`, id).Scan(&exists); err != nil {
			return 0, persistence("check setlist", err)
		}
		if !exists {
			return 0, notFound("setlist %q not found", id)
		}
		return 0, conflict("setlist was modified concurrently")
	}
	if err != nil {
		return 0, persistence("update setlist", err)
	}
	return version, nil
}

func (s *PostgresStore) Create(ctx context.Context, sl *SetList) error {
	docs := []any{
		nonNil(sl.Participants),
		nonNil(sl.Songs), nonNil(sl.FlexibleCards), nonNil(sl.RequestSongCards),
		nonNil(sl.CompletedSongs), nonNil(sl.CompletedFlexibleCards), nonNil(sl.CompletedRequestSongCards),
	}
	encoded := make([]any, 0, len(docs))
	for _, d := range docs {
		raw, err := sanitizeDocument(d)
		if err != nil {
			return validationError("encode setlist: %v", err)
		}
		encoded = append(encoded, raw)
	}
	args := append([]any{sl.ID, sl.Name, sl.CreatedBy, string(sl.Status), sl.Version}, encoded...)
	args = append(args, sl.CreatedAt, sl.UpdatedAt)

	_, err := s.db.Exec(ctx, `
        INSERT INTO setlists (`+setlistColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return conflict("setlist already exists")
		}
		return persistence("insert setlist", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]SetList, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+setlistColumns+`
        FROM setlists
        ORDER BY created_at DESC
        LIMIT 200
    `)
	if err != nil {
		return nil, persistence("list setlists", err)
	}
	defer rows.Close()

	out := []SetList{}
	for rows.Next() {
		sl, err := scanSetList(rows)
		if err != nil {
			return nil, persistence("scan setlist", err)
		}
		out = append(out, *sl)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("list setlists", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Exec(ctx, `DELETE FROM setlists WHERE id = $1`, id)
	if err != nil {
		return persistence("delete setlist", err)
	}
	if res.RowsAffected() == 0 {
		return notFound("setlist %q not found", id)
	}
	return nil
}

// Activate flips the active setlist inside one transaction. The partial
// unique index on status backs the single-active rule if two activations
// race.
func (s *PostgresStore) Activate(ctx context.Context, id string) (*SetList, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, persistence("activate begin tx", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM setlists WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("setlist %q not found", id)
	}
	if err != nil {
		return nil, persistence("activate fetch", err)
	}
	if Status(status) == StatusCompleted {
		return nil, validationError("setlist %q is completed", id)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE setlists
        SET status = 'draft', version = version + 1, updated_at = now()
        WHERE status = 'active' AND id <> $1
    `, id); err != nil {
		return nil, persistence("activate deactivate others", err)
	}
	if Status(status) != StatusActive {
		if _, err := tx.Exec(ctx, `
            UPDATE setlists
            SET status = 'active', version = version + 1, updated_at = now()
            WHERE id = $1
        `, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, conflict("another setlist was activated concurrently")
			}
			return nil, persistence("activate", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, persistence("activate commit", err)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) RegisteredNicknames(ctx context.Context, nicknames []string) (RosterSet, error) {
	out := make(RosterSet, len(nicknames))
	if len(nicknames) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT nickname FROM profiles WHERE nickname = ANY($1)`, nicknames)
	if err != nil {
		return nil, persistence("load profiles", err)
	}
	defer rows.Close()
	for rows.Next() {
		var nick string
		if err := rows.Scan(&nick); err != nil {
			return nil, persistence("scan profile", err)
		}
		out[nick] = true
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("load profiles", err)
	}
	return out, nil
}
