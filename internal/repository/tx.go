package repository

import (
	"database/sql"

	"github.com/pkg/errors"
)

// dbtx is the part of *sql.DB and *sql.Tx the repositories query through.
type dbtx interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// affected returns ErrTaskFinished when an update guarded by task status
// matched no row.
func affected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrTaskFinished, "id %d", id)
	}
	return nil
}
