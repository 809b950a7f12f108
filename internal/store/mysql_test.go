package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectOne  = `SELECT body FROM documents WHERE collection = \? AND id = \?`
	lockOne    = `SELECT body FROM documents WHERE collection = \? AND id = \? FOR UPDATE`
	updateBody = `UPDATE documents SET body = \? WHERE collection = \? AND id = \?`
)

func newSQLMock(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQL(db), mock
}

func TestSQLGetMissing(t *testing.T) {
	s, mock := newSQLMock(t)
	mock.ExpectQuery(selectOne).
		WithArgs("products", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	_, err := s.Get(context.Background(), Products, "p-1")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateMergesFields(t *testing.T) {
	s, mock := newSQLMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockOne).
		WithArgs("products", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"product_id":"p-1","name":"Lamp","quantity":5}`)))
	mock.ExpectExec(updateBody).
		WithArgs(sqlmock.AnyArg(), "products", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	doc, err := s.Update(context.Background(), Products, "p-1", Document{"quantity": 3, "product_id": "other"})
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), doc["quantity"])
	assert.Equal(t, "Lamp", doc["name"])
	assert.Equal(t, "p-1", doc.ID(Products))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateIfConditionFailed(t *testing.T) {
	s, mock := newSQLMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockOne).
		WithArgs("products", "p-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte(`{"product_id":"p-1","quantity":5}`)))
	mock.ExpectRollback()

	_, err := s.UpdateIf(context.Background(), Products, "p-1", Document{"quantity": 2}, Condition{Attr: "quantity", Equals: 4})
	require.ErrorIs(t, err, ErrConditionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLFindByAttributeRechecksValue(t *testing.T) {
	s, mock := newSQLMock(t)
	mock.ExpectQuery(`SELECT body FROM documents WHERE collection = \? AND JSON_UNQUOTE`).
		WithArgs("orders", `$."user_id"`, "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"order_id":"o-1","user_id":"u-1"}`)).
			AddRow([]byte(`{"order_id":"o-2","user_id":"U-1"}`)))

	docs, err := s.FindByAttribute(context.Background(), Orders, "user_id", "u-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "o-1", docs[0].ID(Orders))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDeleteMissing(t *testing.T) {
	s, mock := newSQLMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockOne).
		WithArgs("orders", "o-9").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))
	mock.ExpectRollback()

	_, err := s.Delete(context.Background(), Orders, "o-9")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
