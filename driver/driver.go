// Package driver provides the database abstraction behind the SQL stores.
//
// A Store is written once against the Executor interface. Backends adapt
// their connection pool to an Executor:
//   - github.com/youssefsiam38/mdchat/driver/pgxv5.New(pool)
//   - github.com/youssefsiam38/mdchat/driver/databasesql.New(db)
package driver

import (
	"context"

	"github.com/youssefsiam38/mdchat/storage"
)

// Driver provides database operations for mdchat.
type Driver interface {
	// GetExecutor returns an executor for non-transactional operations.
	GetExecutor() Executor

	// Begin starts a new transaction and returns an ExecutorTx.
	Begin(ctx context.Context) (ExecutorTx, error)

	// IsForeignKeyViolation reports whether err is a foreign key violation.
	IsForeignKeyViolation(err error) bool

	// GetStore returns a Store implementation using this driver.
	GetStore() storage.Store
}
