package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/logger"
)

// PersistResult counts the outcome of persisting one statement's transactions.
type PersistResult struct {
	Inserted int
	Skipped  int // already stored
	Failed   int // row-level storage errors
}

// Gateway persists canonical transactions without duplicating rows that are
// already stored for the user.
type Gateway struct {
	store TransactionStore
	now   func() time.Time
}

// NewGateway creates a gateway over the given transaction store.
func NewGateway(s TransactionStore) *Gateway {
	return &Gateway{store: s, now: time.Now}
}

// PersistTransactions stores each transaction unless one with the same
// (user, date, description, amount) key exists. Rows are handled one at a
// time in order. When the store supports conditional inserts the check and
// the insert are a single atomic operation; otherwise it is a lookup followed
// by an insert, and two concurrent ingestions of the same statement can both
// pass the lookup. A row that fails to persist is logged and skipped.
func (g *Gateway) PersistTransactions(ctx context.Context, userID string, txs []*domain.Transaction) PersistResult {
	log := logger.FromContext(ctx)
	conditional, atomic := g.store.(ConditionalInserter)

	var res PersistResult
	for _, tx := range txs {
		tx.UserID = userID
		if tx.ID == "" {
			tx.ID = uuid.New().String()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = g.now().UTC()
		}

		var (
			inserted bool
			err      error
		)
		if atomic {
			inserted, err = conditional.InsertTransactionIfAbsent(ctx, tx)
			if err != nil {
				err = &StorageError{Op: "conditional insert", Key: tx.Date + " " + tx.Description, Err: err}
			}
		} else {
			inserted, err = g.checkThenInsert(ctx, tx)
		}
		if err != nil {
			log.Error().Err(err).
				Str("user_id", userID).
				Str("date", tx.Date).
				Str("description", tx.Description).
				Str("amount", tx.Amount.String()).
				Msg("Failed to persist transaction, skipping row")
			res.Failed++
			continue
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}

	log.Info().
		Str("user_id", userID).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Persisted statement transactions")
	return res
}

func (g *Gateway) checkThenInsert(ctx context.Context, tx *domain.Transaction) (bool, error) {
	exists, err := g.store.TransactionExists(ctx, tx.Key())
	if err != nil {
		return false, &StorageError{Op: "lookup", Key: tx.Date + " " + tx.Description, Err: err}
	}
	if exists {
		return false, nil
	}
	if err := g.store.InsertTransaction(ctx, tx); err != nil {
		return false, &StorageError{Op: "insert", Key: tx.Date + " " + tx.Description, Err: err}
	}
	return true, nil
}
