package recurring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/store"
)

// Lookback window bounds, in months.
const (
	DefaultLookbackMonths = 3
	MaxLookbackMonths     = 12
)

// Detection is one recurring item added by a detector run.
type Detection struct {
	Item          *domain.RecurringItem
	DetectionType DetectionType
}

// Result summarises a detector run.
type Result struct {
	Added   int
	Skipped int
	Items   []Detection
}

// Detector finds recurring payments in a user's stored transactions and
// records them as recurring budget items.
type Detector struct {
	transactions store.TransactionStore
	items        store.RecurringStore
	now          func() time.Time
}

// NewDetector creates a detector over the given stores.
func NewDetector(transactions store.TransactionStore, items store.RecurringStore) *Detector {
	return &Detector{transactions: transactions, items: items, now: time.Now}
}

// NormalizeLookback returns months clamped to 1..12, or the default when unset.
func NormalizeLookback(months int) int {
	switch {
	case months <= 0:
		return DefaultLookbackMonths
	case months > MaxLookbackMonths:
		return MaxLookbackMonths
	}
	return months
}

// Detect groups the user's transactions over the lookback window, classifies
// each group and inserts one recurring item per surviving candidate.
// Candidates already covered by an existing item, by pattern or by name, are
// skipped. Inserts are sequential; a failed insert is counted as skipped.
func (d *Detector) Detect(ctx context.Context, userID string, lookbackMonths int) (*Result, error) {
	lookbackMonths = NormalizeLookback(lookbackMonths)
	log := logger.FromContext(ctx).With().
		Str("user_id", userID).
		Int("lookback_months", lookbackMonths).
		Logger()

	since := d.now().AddDate(0, -lookbackMonths, 0).Format(domain.DateLayout)
	txs, err := d.transactions.ListTransactions(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("Detect: listing transactions: %w", err)
	}
	existing, err := d.items.ListRecurringItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Detect: listing recurring items: %w", err)
	}

	patterns := make(map[string]bool, len(existing))
	names := make(map[string]bool, len(existing))
	for _, item := range existing {
		if item.SourcePattern != "" {
			patterns[strings.ToUpper(item.SourcePattern)] = true
		}
		names[strings.ToLower(item.Name)] = true
	}

	res := &Result{}
	for _, g := range GroupTransactions(txs) {
		c, ok := Classify(g)
		if !ok {
			continue
		}
		clog := log.With().
			Str("pattern", c.Pattern).
			Str("detection_type", string(c.DetectionType)).
			Logger()

		if patterns[strings.ToUpper(c.Pattern)] || names[strings.ToLower(c.DisplayName)] {
			clog.Debug().Msg("Recurring candidate already tracked")
			res.Skipped++
			continue
		}

		item, err := d.insert(ctx, userID, c)
		if err != nil {
			clog.Warn().Err(err).Msg("Skipping recurring candidate")
			res.Skipped++
			continue
		}
		if item == nil {
			clog.Debug().Msg("Recurring item created since snapshot")
			res.Skipped++
			continue
		}

		patterns[strings.ToUpper(c.Pattern)] = true
		names[strings.ToLower(c.DisplayName)] = true
		res.Added++
		res.Items = append(res.Items, Detection{Item: item, DetectionType: c.DetectionType})
	}

	log.Info().
		Int("transactions", len(txs)).
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Msg("Recurring detection finished")
	return res, nil
}

// insert re-checks the item name against storage and inserts the candidate.
// It returns a nil item when an item with the name now exists.
func (d *Detector) insert(ctx context.Context, userID string, c Candidate) (*domain.RecurringItem, error) {
	_, err := d.items.FindRecurringItemByName(ctx, userID, c.DisplayName)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, &store.StorageError{Op: "lookup", Key: c.DisplayName, Err: err}
	}

	item := &domain.RecurringItem{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          c.DisplayName,
		Frequency:     domain.Monthly,
		Amount:        c.AverageAmount,
		SourcePattern: c.Pattern,
		AutoDetected:  true,
		CreatedAt:     d.now().UTC(),
	}
	if err := d.items.InsertRecurringItem(ctx, item); err != nil {
		return nil, &store.StorageError{Op: "insert", Key: c.DisplayName, Err: err}
	}
	return item, nil
}
