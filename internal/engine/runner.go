package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/devblac/sweepwatch/internal/marketplace"
	"github.com/devblac/sweepwatch/internal/metrics"
	"github.com/devblac/sweepwatch/internal/notify"
	"github.com/devblac/sweepwatch/internal/storage"
)

// Inter-message pacing, distinct from the enricher's inter-batch pacing.
const messagePause = 300 * time.Millisecond

// SalesSource yields newly observed sale transactions for one polling window.
type SalesSource interface {
	FetchRecentSales(ctx context.Context) ([]marketplace.SaleEvent, marketplace.FetchStatus)
}

// ImageFetcher resolves media URLs for the tokens of one sale.
type ImageFetcher interface {
	FetchImages(ctx context.Context, tokenIDs []string) []string
}

// Runner owns the seen-set and drives one polling cycle at a time: fetch,
// filter already-seen sales, enrich, publish, mark seen. Cycles never overlap;
// the caller ticks RunOnce sequentially.
type Runner struct {
	source SalesSource
	images ImageFetcher
	sender notify.Sender
	store  *storage.Store // optional durable write-through
	mtr    *metrics.Metrics
	log    *slog.Logger
	dryRun bool

	seen map[string]struct{}

	pause time.Duration
	sleep func(time.Duration)
}

// NewRunner wires the source, enricher, sender, and optional store.
func NewRunner(source SalesSource, images ImageFetcher, sender notify.Sender, store *storage.Store, mtr *metrics.Metrics, log *slog.Logger, dryRun bool) *Runner {
	return &Runner{
		source: source,
		images: images,
		sender: sender,
		store:  store,
		mtr:    mtr,
		log:    log,
		dryRun: dryRun,
		seen:   map[string]struct{}{},
		pause:  messagePause,
		sleep:  time.Sleep,
	}
}

// RestoreSeen replays durably recorded dedup keys into the seen-set so a
// restart does not re-announce sales still inside the polling window.
func (r *Runner) RestoreSeen(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	keys, err := r.store.LoadDedupKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		r.seen[k] = struct{}{}
	}
	if len(keys) > 0 {
		r.log.Info("restored dedup keys", "count", len(keys))
	}
	return nil
}

// SeenCount reports the size of the in-memory seen-set.
func (r *Runner) SeenCount() int {
	return len(r.seen)
}

// RunOnce executes one polling cycle. All failure modes degrade to a logged
// skip; the returned status lets the caller stretch its tick interval under
// sustained rate limiting.
func (r *Runner) RunOnce(ctx context.Context) marketplace.FetchStatus {
	if r.sender == nil || !r.sender.Ready() {
		r.log.Warn("notification channel unavailable, skipping cycle")
		return marketplace.FetchOK
	}

	sales, status := r.source.FetchRecentSales(ctx)
	switch status {
	case marketplace.FetchRateLimited:
		r.mtr.RateLimited()
	case marketplace.FetchFailed:
		r.mtr.Errors()
	}
	r.mtr.SalesFetched(len(sales))

	for i, sale := range sales {
		key := sale.DedupKey()
		if _, dup := r.seen[key]; dup {
			r.mtr.DuplicatesSkipped()
			continue
		}

		if err := r.dispatch(ctx, sale); err != nil {
			// Per-sale isolation: the rest of the cycle proceeds.
			r.log.Error("process sale", "key", key, "error", err)
			r.mtr.Errors()
			continue
		}

		r.markSeen(ctx, sale, key)
		if i < len(sales)-1 {
			r.sleep(r.pause)
		}
	}

	r.mtr.Cycles()
	return status
}

func (r *Runner) dispatch(ctx context.Context, sale marketplace.SaleEvent) error {
	images := r.images.FetchImages(ctx, sale.TokenIDs)
	if r.dryRun {
		r.log.Info("dry-run, not publishing",
			"tx_hash", sale.TxHash,
			"tokens", sale.TokenCount(),
			"category", string(notify.Classify(sale.TokenCount())))
		return nil
	}
	if err := r.sender.Send(ctx, sale, images); err != nil {
		return err
	}
	r.mtr.NotificationsSent()
	r.log.Info("posted sale",
		"tx_hash", sale.TxHash,
		"tokens", sale.TokenCount(),
		"category", string(notify.Classify(sale.TokenCount())))
	return nil
}

func (r *Runner) markSeen(ctx context.Context, sale marketplace.SaleEvent, key string) {
	r.seen[key] = struct{}{}
	if r.store == nil {
		return
	}
	if err := r.store.MarkDispatched(ctx, key); err != nil {
		r.log.Error("persist dedup key", "key", key, "error", err)
	}
	n := storage.Notification{
		DedupKey:   key,
		TxHash:     sale.TxHash,
		Buyer:      sale.Buyer,
		Category:   string(notify.Classify(sale.TokenCount())),
		TokenCount: sale.TokenCount(),
		CreatedAt:  sale.Timestamp,
	}
	if sale.TotalPrice != nil {
		n.TotalPriceWei = sale.TotalPrice.String()
	}
	if err := r.store.InsertNotification(ctx, n); err != nil {
		r.log.Error("persist notification", "key", key, "error", err)
	}
}
