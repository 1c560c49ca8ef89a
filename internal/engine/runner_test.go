package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devblac/sweepwatch/internal/marketplace"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	sales  []marketplace.SaleEvent
	status marketplace.FetchStatus
	calls  int
}

func (f *fakeSource) FetchRecentSales(ctx context.Context) ([]marketplace.SaleEvent, marketplace.FetchStatus) {
	f.calls++
	return f.sales, f.status
}

type fakeImages struct {
	calls [][]string
}

func (f *fakeImages) FetchImages(ctx context.Context, tokenIDs []string) []string {
	f.calls = append(f.calls, tokenIDs)
	urls := make([]string, len(tokenIDs))
	for i, id := range tokenIDs {
		urls[i] = "http://img/" + id
	}
	return urls
}

type fakeSender struct {
	ready   bool
	sent    []marketplace.SaleEvent
	failTxs map[string]bool
}

func (f *fakeSender) Ready() bool { return f.ready }

func (f *fakeSender) Send(ctx context.Context, sale marketplace.SaleEvent, images []string) error {
	if f.failTxs[sale.TxHash] {
		return fmt.Errorf("send failed for %s", sale.TxHash)
	}
	f.sent = append(f.sent, sale)
	return nil
}

func sweepSale(tx string, tokens ...string) marketplace.SaleEvent {
	return marketplace.SaleEvent{
		TxHash:     tx,
		Buyer:      "0xbuyer",
		Seller:     "0xseller",
		TokenIDs:   tokens,
		TotalPrice: big.NewInt(1000),
	}
}

func noSleep(time.Duration) {}

func TestRunOnceDedupesAcrossCycles(t *testing.T) {
	sale := sweepSale("0xabc", "1", "2", "3")
	source := &fakeSource{sales: []marketplace.SaleEvent{sale}}
	sender := &fakeSender{ready: true}
	images := &fakeImages{}
	r := NewRunner(source, images, sender, nil, nil, testLogger(), false)
	r.sleep = noSleep

	r.RunOnce(context.Background())
	if len(sender.sent) != 1 {
		t.Fatalf("cycle 1 should publish once, got %d", len(sender.sent))
	}
	if r.SeenCount() != 1 {
		t.Fatalf("seen-set should hold one key, got %d", r.SeenCount())
	}

	// Same sales again next cycle: nothing new goes out.
	r.RunOnce(context.Background())
	if len(sender.sent) != 1 {
		t.Fatalf("cycle 2 must not republish, got %d sends", len(sender.sent))
	}
	if r.SeenCount() != 1 {
		t.Fatalf("seen-set size should be unchanged, got %d", r.SeenCount())
	}
	if len(images.calls) != 1 {
		t.Fatalf("duplicate sales must not be enriched again, got %d", len(images.calls))
	}
}

func TestRunOnceIsolatesPerSaleFailures(t *testing.T) {
	source := &fakeSource{sales: []marketplace.SaleEvent{
		sweepSale("0xbad", "1"),
		sweepSale("0xgood", "2"),
	}}
	sender := &fakeSender{ready: true, failTxs: map[string]bool{"0xbad": true}}
	images := &fakeImages{}
	r := NewRunner(source, images, sender, nil, nil, testLogger(), false)
	r.sleep = noSleep

	r.RunOnce(context.Background())

	if len(sender.sent) != 1 || sender.sent[0].TxHash != "0xgood" {
		t.Fatalf("failure on one sale must not abort the cycle: %+v", sender.sent)
	}
	// The failed sale is not marked seen, so a later cycle can retry it.
	if r.SeenCount() != 1 {
		t.Fatalf("only the dispatched sale is marked seen, got %d", r.SeenCount())
	}
}

func TestRunOnceSkipsWhenChannelUnavailable(t *testing.T) {
	source := &fakeSource{sales: []marketplace.SaleEvent{sweepSale("0x1", "1")}}
	sender := &fakeSender{ready: false}
	r := NewRunner(source, &fakeImages{}, sender, nil, nil, testLogger(), false)
	r.sleep = noSleep

	status := r.RunOnce(context.Background())
	if status != marketplace.FetchOK {
		t.Fatalf("skipped cycle is not an error, got %s", status)
	}
	if source.calls != 0 {
		t.Fatalf("no fetch should happen without a channel, got %d", source.calls)
	}
}

func TestRunOncePropagatesFetchStatus(t *testing.T) {
	source := &fakeSource{status: marketplace.FetchRateLimited}
	sender := &fakeSender{ready: true}
	r := NewRunner(source, &fakeImages{}, sender, nil, nil, testLogger(), false)
	r.sleep = noSleep

	if status := r.RunOnce(context.Background()); status != marketplace.FetchRateLimited {
		t.Fatalf("rate-limit status must surface to the caller, got %s", status)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing to send on an empty cycle")
	}
}

func TestRunOnceDryRunMarksSeenWithoutSending(t *testing.T) {
	source := &fakeSource{sales: []marketplace.SaleEvent{sweepSale("0x2", "1")}}
	sender := &fakeSender{ready: true}
	r := NewRunner(source, &fakeImages{}, sender, nil, nil, testLogger(), true)
	r.sleep = noSleep

	r.RunOnce(context.Background())
	if len(sender.sent) != 0 {
		t.Fatalf("dry-run must not publish")
	}
	if r.SeenCount() != 1 {
		t.Fatalf("dry-run still marks sales seen, got %d", r.SeenCount())
	}
}

// End-to-end against the real marketplace client: three raw events sharing one
// tx hash become a single mini-sweep notification, and replaying the same
// window publishes nothing new.
func TestRunnerEndToEnd(t *testing.T) {
	body := `{
	  "asset_events": [
	    {"transaction": {"transaction_hash": "0xabc"}, "winner_account": {"address": "0xb"},
	     "seller": {"address": "0xs"}, "asset": {"token_id": 1},
	     "payment_token": {"symbol": "ETH"}, "total_price": "1000000000000000000"},
	    {"transaction": {"transaction_hash": "0xabc"}, "winner_account": {"address": "0xb"},
	     "seller": {"address": "0xs"}, "asset": {"token_id": 2},
	     "payment_token": {"symbol": "ETH"}, "total_price": "1000000000000000000"},
	    {"transaction": {"transaction_hash": "0xabc"}, "winner_account": {"address": "0xb"},
	     "seller": {"address": "0xs"}, "asset": {"token_id": 3},
	     "payment_token": {"symbol": "ETH"}, "total_price": "1000000000000000000"}
	  ]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	client := marketplace.NewClient(server.URL, "0xcontract", "", 50, testLogger())
	sender := &fakeSender{ready: true}
	r := NewRunner(client, &fakeImages{}, sender, nil, nil, testLogger(), false)
	r.sleep = noSleep

	if status := r.RunOnce(context.Background()); status != marketplace.FetchOK {
		t.Fatalf("cycle 1 status: %s", status)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(sender.sent))
	}
	if sender.sent[0].TokenCount() != 3 {
		t.Fatalf("expected a 3-token sweep, got %d", sender.sent[0].TokenCount())
	}
	if r.SeenCount() != 1 {
		t.Fatalf("dedup-set size should be 1, got %d", r.SeenCount())
	}

	if status := r.RunOnce(context.Background()); status != marketplace.FetchOK {
		t.Fatalf("cycle 2 status: %s", status)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("replayed events must not republish, got %d sends", len(sender.sent))
	}
	if r.SeenCount() != 1 {
		t.Fatalf("dedup-set size should stay 1, got %d", r.SeenCount())
	}
}
