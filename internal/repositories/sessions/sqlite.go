package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/dbx"
)

var _ Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Save(ctx context.Context, rec Record) error {
	now := r.now().Unix()

	query := `INSERT INTO upload_sessions (asset_id, kind, parent_id, file_name, file_size, checksum, state, transferred, error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(asset_id) DO UPDATE SET
				kind = excluded.kind,
				parent_id = excluded.parent_id,
				file_name = excluded.file_name,
				file_size = excluded.file_size,
				checksum = excluded.checksum,
				state = excluded.state,
				transferred = excluded.transferred,
				error = excluded.error,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, rec.AssetID, rec.Kind, rec.ParentID, rec.FileName, rec.FileSize,
		rec.Checksum, rec.State, rec.Transferred, rec.Error, now, now)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.AssetID, err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateState(ctx context.Context, assetID, state string, transferred bool, errText string) error {
	query := `UPDATE upload_sessions SET state = ?, transferred = ?, error = ?, updated_at = ? WHERE asset_id = ?`
	result, err := r.db.ExecContext(ctx, query, state, transferred, errText, r.now().Unix(), assetID)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", assetID, err)
	}
	return expectOne(result, assetID)
}

func (r *SQLiteRepository) Get(ctx context.Context, assetID string) (Record, error) {
	query := `SELECT asset_id, kind, parent_id, file_name, file_size, checksum, state, transferred, error, created_at, updated_at
			FROM upload_sessions WHERE asset_id = ?`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, assetID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("session %s: %w", assetID, common.ErrorNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get session %s: %w", assetID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListUnfinished(ctx context.Context) ([]Record, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(finishedStates)), ", ")
	query := `SELECT asset_id, kind, parent_id, file_name, file_size, checksum, state, transferred, error, created_at, updated_at
			FROM upload_sessions WHERE state NOT IN (` + placeholders + `) ORDER BY created_at, asset_id`

	args := make([]any, len(finishedStates))
	for i, s := range finishedStates {
		args[i] = s
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error selecting sessions: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, assetID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE asset_id = ?`, assetID)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", assetID, err)
	}
	return expectOne(result, assetID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var created, updated int64
	err := s.Scan(&rec.AssetID, &rec.Kind, &rec.ParentID, &rec.FileName, &rec.FileSize, &rec.Checksum,
		&rec.State, &rec.Transferred, &rec.Error, &created, &updated)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt = time.Unix(created, 0)
	rec.UpdatedAt = time.Unix(updated, 0)
	return rec, nil
}

func expectOne(result sql.Result, assetID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", assetID, common.ErrorNotFound)
	}
	return nil
}

// Prune deletes committed sessions last updated before cutoff and returns
// their asset ids.
func Prune(ctx context.Context, db *sql.DB, cutoff time.Time) ([]string, error) {
	var ids []string
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ids = nil
		rows, err := tx.QueryContext(ctx,
			`SELECT asset_id FROM upload_sessions WHERE state = ? AND updated_at < ? ORDER BY asset_id`,
			finishedStates[0], cutoff.Unix())
		if err != nil {
			return fmt.Errorf("error selecting committed sessions: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		repo := NewSQLiteRepository(tx)
		for _, id := range ids {
			if err := repo.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("prune journal: %w", err)
	}
	return ids, nil
}
