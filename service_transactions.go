package grantkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// txContextKey carries the active transaction so nested operations join it.
type txContextKey struct{}

// Transaction executes fn within a database transaction with automatic
// commit/rollback. If fn returns an error the transaction is rolled back.
// Nested calls become savepoints via dbkit.
//
// Queries issued through the service inside fn automatically run on the
// transaction; callers never handle the *dbkit.Tx directly.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context) error {
//	    if _, err := service.Assign(ctx, "u1", "Member", "admin1"); err != nil {
//	        return err // rollback
//	    }
//	    _, err := service.Assign(ctx, "u2", "Member", "admin1")
//	    return err
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	var err error

	if tx, ok := ctx.Value(txContextKey{}).(*dbkit.Tx); ok {
		err = tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(context.WithValue(ctx, txContextKey{}, tx))
		})
	} else if db, ok := s.db.(*dbkit.DBKit); ok {
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(context.WithValue(ctx, txContextKey{}, tx))
		})
	} else if tx, ok := s.db.(*dbkit.Tx); ok {
		// Service constructed directly on a transaction; join it.
		err = tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(context.WithValue(ctx, txContextKey{}, tx))
		})
	} else {
		err = NewError(ErrStorageUnavailable, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.txMonitor.record(time.Since(start), err == nil)
	return err
}

// ReadOnlyTransaction executes fn within a read-only transaction, for
// multi-query reads that need a consistent snapshot.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
//	    roles, err := service.GetUserRoles(ctx, userID)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = service.GetAuditLog(ctx, grantkit.NewAuditLogFilter().WithUser(userID))
//	    return err
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), func(tx *dbkit.Tx) error {
			return fn(context.WithValue(ctx, txContextKey{}, tx))
		})
	}
	return s.Transaction(ctx, fn)
}

// conn returns the connection queries should run on: the transaction bound
// to ctx when inside Transaction, the pool otherwise.
func (s *Service) conn(ctx context.Context) dbkit.IDB {
	if tx, ok := ctx.Value(txContextKey{}).(*dbkit.Tx); ok {
		return tx
	}
	return s.db
}

// GetTransactionMetrics returns the current transaction performance metrics.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.metrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}
