package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn records the transaction options and outcome it saw so the
// helpers can be tested without a real database.
type stubConn struct {
	beginOpts  driver.TxOptions
	committed  bool
	rolledBack bool
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *stubConn) Close() error                        { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.beginOpts = opts
	return &stubTx{conn: c}, nil
}

type stubTx struct{ conn *stubConn }

func (t *stubTx) Commit() error   { t.conn.committed = true; return nil }
func (t *stubTx) Rollback() error { t.conn.rolledBack = true; return nil }

type stubConnector struct{ conn *stubConn }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return nil }

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	d := sql.OpenDB(stubConnector{conn: conn})
	d.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })
	return d, conn
}

func TestRunInTxCommitsOnSuccess(t *testing.T) {
	d, conn := newStubDB(t)

	err := RunInTx(context.Background(), d, nil, func(context.Context, DBTX) error {
		return nil
	})
	require.NoError(t, err)
	assert.True(t, conn.committed)
	assert.False(t, conn.rolledBack)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	d, conn := newStubDB(t)
	boom := errors.New("boom")

	err := RunInTx(context.Background(), d, nil, func(context.Context, DBTX) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, conn.rolledBack)
	assert.False(t, conn.committed)
}

func TestReadOnlyBeginsReadOnlyTx(t *testing.T) {
	d, conn := newStubDB(t)

	var got *sql.Tx
	err := ReadOnly(context.Background(), d, func(_ context.Context, tx *sql.Tx) error {
		got = tx
		return nil
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.True(t, conn.beginOpts.ReadOnly)
	assert.True(t, conn.committed)
}

func TestReadOnlyRollsBackOnError(t *testing.T) {
	d, conn := newStubDB(t)

	err := ReadOnly(context.Background(), d, func(context.Context, *sql.Tx) error {
		return errors.New("query failed")
	})
	require.Error(t, err)
	assert.True(t, conn.rolledBack)
}
