package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openJournal(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE parts (asset_id TEXT, idx INTEGER)`)
	require.NoError(t, err)
	return db
}

func parts(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM parts`).Scan(&n))
	return n
}

func insertPart(ctx context.Context, tx DBTX, idx int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO parts (asset_id, idx) VALUES ('a1', ?)`, idx)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db := openJournal(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertPart(ctx, tx, 0); err != nil {
			return err
		}
		return insertPart(ctx, tx, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, parts(t, db))
}

func TestWithTx_ErrorRollsBack(t *testing.T) {
	db := openJournal(t)
	boom := errors.New("part 2 rejected")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertPart(ctx, tx, 0))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, parts(t, db))
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := openJournal(t)

	assert.PanicsWithValue(t, "interrupted", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertPart(ctx, tx, 0))
			panic("interrupted")
		})
	})
	assert.Equal(t, 0, parts(t, db))
}

func TestWithTx_BeginFails(t *testing.T) {
	db := openJournal(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestWithTx_CommitErrorReturned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error { return nil })
	require.Error(t, err)
	assert.ErrorContains(t, err, "commit transaction: database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackErrorJoined(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("disk I/O error"))

	boom := errors.New("delete a1: constraint failed")
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "rollback: disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}
