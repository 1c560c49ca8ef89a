package marketplace

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
)

type fakeAssets struct {
	mu      sync.Mutex
	queried []string
	fail    map[string]bool
	missing map[string]bool
}

func (f *fakeAssets) FetchAssetImage(ctx context.Context, tokenID string) (string, error) {
	f.mu.Lock()
	f.queried = append(f.queried, tokenID)
	f.mu.Unlock()
	if f.fail[tokenID] {
		return "", fmt.Errorf("boom for %s", tokenID)
	}
	if f.missing[tokenID] {
		return "", nil
	}
	return "http://img/" + tokenID, nil
}

func newTestEnricher(assets *fakeAssets) *Enricher {
	e := NewEnricher(assets)
	e.pause = 0
	return e
}

func TestFetchImagesCapsAtTwenty(t *testing.T) {
	ids := make([]string, 23)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}

	assets := &fakeAssets{}
	images := newTestEnricher(assets).FetchImages(context.Background(), ids)

	if len(assets.queried) != 20 {
		t.Fatalf("expected 20 lookups, got %d", len(assets.queried))
	}
	queried := map[string]bool{}
	for _, id := range assets.queried {
		queried[id] = true
	}
	for _, id := range []string{"21", "22", "23"} {
		if queried[id] {
			t.Errorf("token %s beyond the cap must never be queried", id)
		}
	}
	if len(images) != 20 {
		t.Fatalf("expected 20 urls, got %d", len(images))
	}
}

func TestFetchImagesBatchesOfFive(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}

	assets := &fakeAssets{}
	newTestEnricher(assets).FetchImages(context.Background(), ids)

	// Batches run concurrently within themselves but strictly in sequence:
	// each window of the query log holds exactly one batch's ids.
	if len(assets.queried) != 12 {
		t.Fatalf("expected 12 lookups, got %d", len(assets.queried))
	}
	batches := [][]string{assets.queried[0:5], assets.queried[5:10], assets.queried[10:12]}
	next := 1
	for bi, batch := range batches {
		got := append([]string{}, batch...)
		sort.Slice(got, func(i, j int) bool {
			a, _ := strconv.Atoi(got[i])
			b, _ := strconv.Atoi(got[j])
			return a < b
		})
		for _, id := range got {
			if id != strconv.Itoa(next) {
				t.Fatalf("batch %d out of window: queried %v", bi, assets.queried)
			}
			next++
		}
	}
}

func TestFetchImagesDegradesPerToken(t *testing.T) {
	assets := &fakeAssets{
		fail:    map[string]bool{"2": true},
		missing: map[string]bool{"3": true},
	}
	images := newTestEnricher(assets).FetchImages(context.Background(), []string{"1", "2", "3", "4"})

	if len(images) != 2 {
		t.Fatalf("expected 2 urls (failures become absences), got %v", images)
	}
	for _, url := range images {
		if url == "http://img/2" || url == "http://img/3" {
			t.Fatalf("failed or missing tokens must not produce urls: %v", images)
		}
	}
}

func TestFetchImagesEmptyInput(t *testing.T) {
	assets := &fakeAssets{}
	if images := newTestEnricher(assets).FetchImages(context.Background(), nil); len(images) != 0 {
		t.Fatalf("expected no images for empty input, got %v", images)
	}
	if len(assets.queried) != 0 {
		t.Fatalf("no lookups expected for empty input")
	}
}
