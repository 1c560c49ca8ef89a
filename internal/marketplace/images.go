package marketplace

import (
	"context"
	"sync"
	"time"
)

const (
	// Cost/latency bound on enrichment for very large sweeps.
	maxImageLookups = 20
	imageBatchSize  = 5

	defaultBatchPause = 100 * time.Millisecond
)

// AssetImageFetcher is the per-token lookup the enricher fans out over.
type AssetImageFetcher interface {
	FetchAssetImage(ctx context.Context, tokenID string) (string, error)
}

// Enricher resolves media URLs for a batch of token ids with bounded
// parallelism: fixed-size batches run concurrently within themselves, with a
// pacing delay between batches to stay under rate limits.
type Enricher struct {
	assets AssetImageFetcher
	pause  time.Duration
}

// NewEnricher builds an enricher over the given asset lookup.
func NewEnricher(assets AssetImageFetcher) *Enricher {
	return &Enricher{assets: assets, pause: defaultBatchPause}
}

// FetchImages resolves image URLs for up to maxImageLookups token ids.
// Best-effort: per-token failures degrade to an absent URL and the returned
// list holds only successful lookups, so it may be shorter than the input and
// is not guaranteed to match input order.
func (e *Enricher) FetchImages(ctx context.Context, tokenIDs []string) []string {
	if len(tokenIDs) > maxImageLookups {
		tokenIDs = tokenIDs[:maxImageLookups]
	}

	images := []string{}
	for start := 0; start < len(tokenIDs); start += imageBatchSize {
		end := start + imageBatchSize
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}
		batch := tokenIDs[start:end]

		results := make([]string, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				url, err := e.assets.FetchAssetImage(ctx, id)
				if err != nil {
					return
				}
				results[i] = url
			}(i, id)
		}
		wg.Wait()

		for _, url := range results {
			if url != "" {
				images = append(images, url)
			}
		}

		if end < len(tokenIDs) {
			time.Sleep(e.pause)
		}
	}

	return images
}
