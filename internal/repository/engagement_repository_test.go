package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleLikeTx_Off(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEngagementRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_likes WHERE event_id=? AND user_id=?")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	on, err := repo.ToggleLikeTx(context.Background(), tx, 1, 2)
	require.NoError(t, err)
	assert.False(t, on)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleLikeTx_On(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEngagementRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_likes WHERE event_id=? AND user_id=?")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO event_likes (event_id, user_id) VALUES (?,?)")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	on, err := repo.ToggleLikeTx(context.Background(), tx, 1, 2)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleSaveTx_DuplicateInsertReportsOn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEngagementRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM saved_events WHERE event_id=? AND user_id=?")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// A racing toggle-on won the unique key first; the state is on
	// either way.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO saved_events (event_id, user_id) VALUES (?,?)")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnError(errors.New("Error 1062: Duplicate entry '1-2' for key 'uq_saved_events'"))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	on, err := repo.ToggleSaveTx(context.Background(), tx, 1, 2)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsLiked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEngagementRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM event_likes WHERE event_id=? AND user_id=? LIMIT 1")).
		WithArgs(uint64(1), uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	liked, err := repo.IsLiked(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, liked)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM event_likes WHERE event_id=? AND user_id=? LIMIT 1")).
		WithArgs(uint64(1), uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	liked, err = repo.IsLiked(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
