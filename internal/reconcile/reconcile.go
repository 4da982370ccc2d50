// Package reconcile uploads the offline sale queue to the sale-event server
// and applies the server's verdict to the local store.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bourse-pos/bourse/internal/db"
	blog "github.com/bourse-pos/bourse/internal/log"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/telemetry"
)

// ErrSyncTransport is returned when the batch could not be delivered or its
// response could not be read. No local sale is changed.
var ErrSyncTransport = errors.New("sync transport failure")

// Result summarizes one reconciliation.
type Result struct {
	// Synced is the number of sales the server confirmed.
	Synced int `json:"synced"`

	// Conflicts holds one "<article description>: <error>" line per sale
	// the server rejected.
	Conflicts []string `json:"conflicts"`
}

// Reconciler submits pending sales and records the outcome.
type Reconciler struct {
	db        *db.DB
	api       remote.API
	logger    *slog.Logger
	telemetry telemetry.Client
	now       func() time.Time

	mu sync.Mutex
}

// New creates a reconciler. A nil logger or telemetry client disables that
// output.
func New(database *db.DB, api remote.API, logger *slog.Logger, tc telemetry.Client) *Reconciler {
	if tc == nil {
		tc = telemetry.Noop()
	}
	return &Reconciler{
		db:        database,
		api:       api,
		logger:    blog.OrDiscard(logger),
		telemetry: tc,
		now:       time.Now,
	}
}

type rejection struct {
	id      string
	message string
}

// SyncPendingSales submits every pending sale of an edition in one batch.
//
// Confirmed sales leave the queue. Rejected sales move to conflict with the
// server's message and are reported in Result.Conflicts. A sale the server
// did not answer for stays pending for the next run. With nothing pending
// the server is not contacted.
//
// Calls on the same Reconciler run one at a time.
func (r *Reconciler) SyncPendingSales(ctx context.Context, editionID string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	store := r.db.WithContext(ctx)

	pending, err := store.ListSalesByStatus(editionID, models.SaleStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending sales: %w", err)
	}
	if len(pending) == 0 {
		return &Result{Conflicts: []string{}}, nil
	}

	start := r.now()
	batch := make([]remote.SaleSubmission, len(pending))
	byID := make(map[string]*models.PendingSale, len(pending))
	for i := range pending {
		sale := &pending[i]
		batch[i] = remote.SaleSubmission{
			ClientID:       sale.ID,
			ArticleID:      sale.ArticleID,
			PaymentMethod:  string(sale.PaymentMethod),
			RegisterNumber: sale.RegisterNumber,
			SoldAt:         sale.SoldAt,
		}
		byID[sale.ID] = sale
	}

	r.logger.Info("submitting sales batch", "edition_id", editionID, "count", len(batch))

	results, err := r.api.SubmitSalesBatch(ctx, editionID, batch)
	if err != nil {
		r.recordFailure(editionID, err)
		return nil, fmt.Errorf("%w: %w", ErrSyncTransport, err)
	}

	var confirmed []string
	var rejected []rejection
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		if _, ok := byID[res.ClientID]; !ok {
			r.logger.Warn("ignoring result for unknown sale", "sale_id", res.ClientID, "status", res.Status)
			continue
		}
		if seen[res.ClientID] {
			r.logger.Warn("ignoring duplicate result", "sale_id", res.ClientID)
			continue
		}
		seen[res.ClientID] = true

		switch res.Status {
		case remote.ResultSynced:
			confirmed = append(confirmed, res.ClientID)
		case remote.ResultRejected:
			msg := res.ErrorMessage
			if msg == "" {
				msg = "rejected by server"
			}
			rejected = append(rejected, rejection{id: res.ClientID, message: msg})
		default:
			r.logger.Warn("ignoring result with unknown status", "sale_id", res.ClientID, "status", res.Status)
			delete(seen, res.ClientID)
		}
	}
	if unanswered := len(batch) - len(seen); unanswered > 0 {
		r.logger.Warn("sales left pending without a result", "edition_id", editionID, "count", unanswered)
	}

	result := &Result{Conflicts: make([]string, 0, len(rejected))}
	err = store.Transaction(func(tx *db.DB) error {
		for _, rej := range rejected {
			if err := tx.MarkSaleConflict(rej.id, rej.message); err != nil {
				return fmt.Errorf("mark conflict %s: %w", rej.id, err)
			}
		}
		n, err := tx.ConfirmSales(confirmed)
		if err != nil {
			return fmt.Errorf("confirm sales: %w", err)
		}
		if _, err := tx.PurgeSyncedSales(); err != nil {
			return fmt.Errorf("purge synced sales: %w", err)
		}
		if err := tx.SetSyncMeta(models.SyncMetaLastSync, r.now().UTC().Format(time.RFC3339)); err != nil {
			return err
		}
		if err := tx.DeleteSyncMeta(models.SyncMetaLastSyncError); err != nil {
			return err
		}
		result.Synced = int(n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply sync results: %w", err)
	}

	for _, rej := range rejected {
		sale := *byID[rej.id]
		msg := rej.message
		sale.SyncError = &msg
		result.Conflicts = append(result.Conflicts, sale.ConflictLine())
	}

	r.logger.Info("sales batch reconciled",
		"edition_id", editionID,
		"synced", result.Synced,
		"conflicts", len(result.Conflicts),
	)
	r.telemetry.TrackSyncCompleted(result.Synced, len(result.Conflicts), time.Since(start).Milliseconds())

	return result, nil
}

// LastSync returns when the last batch was reconciled and the last transport
// error, if the most recent attempt failed.
func (r *Reconciler) LastSync(ctx context.Context) (time.Time, string, error) {
	store := r.db.WithContext(ctx)
	raw, err := store.GetSyncMeta(models.SyncMetaLastSync)
	if err != nil {
		return time.Time{}, "", err
	}
	lastErr, err := store.GetSyncMeta(models.SyncMetaLastSyncError)
	if err != nil {
		return time.Time{}, "", err
	}
	if raw == "" {
		return time.Time{}, lastErr, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, lastErr, fmt.Errorf("parse last sync: %w", err)
	}
	return at, lastErr, nil
}

// recordFailure notes a transport failure. Errors here are only logged: the
// transport error is what the caller needs to see.
func (r *Reconciler) recordFailure(editionID string, cause error) {
	r.logger.Warn("sales batch not delivered", "edition_id", editionID, "error", cause)
	r.telemetry.TrackSyncFailed(classify(cause))

	if err := r.db.SetSyncMeta(models.SyncMetaLastSyncError, cause.Error()); err != nil {
		r.logger.Error("record sync error", "error", err)
	}
}

func classify(err error) string {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, remote.ErrClientOutdated):
		return "client_outdated"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	default:
		return "network"
	}
}
