package book

import (
	"testing"

	"github.com/onurkoc/spreadwatch/feed"
)

type recordingHandler struct {
	warnings []string
}

func (h *recordingHandler) OnWarn(msg string) {
	h.warnings = append(h.warnings, msg)
}

func addEvent(id uint64, side feed.Side, price uint32, qty uint64, rankingTime uint64, rankingSeq uint32) feed.Event {
	return feed.Event{
		Kind:        feed.KindAddOrder,
		OrderID:     id,
		Side:        side,
		Price:       price,
		Quantity:    qty,
		RankingTime: rankingTime,
		RankingSeq:  rankingSeq,
	}
}

func TestApplyAddBuildsBestPrices(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(addEvent(2, feed.SideBuy, 105, 5, 1, 2))
	b.Apply(addEvent(3, feed.SideSell, 110, 7, 1, 3))
	b.Apply(addEvent(4, feed.SideSell, 108, 3, 1, 4))

	if got := b.BestBidPrice(); got != 105 {
		t.Fatalf("best bid = %d, want 105", got)
	}
	if got := b.BestAskPrice(); got != 108 {
		t.Fatalf("best ask = %d, want 108", got)
	}
	if !b.HasTop() {
		t.Fatalf("expected HasTop true")
	}
}

func TestApplyExecutePartialReducesQuantity(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(feed.Event{Kind: feed.KindExecuteOrder, OrderID: 1, Quantity: 4})

	if got := b.BestBidQuantity(); got != 6 {
		t.Fatalf("aggregate = %d, want 6", got)
	}
	if got := b.LastExecPrice(); got != 100 {
		t.Fatalf("last exec price = %d, want fallback to order price 100", got)
	}
}

func TestApplyExecuteFullRemovesLevel(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(feed.Event{Kind: feed.KindExecuteOrder, OrderID: 1, Quantity: 10})

	if got := b.BestBidPrice(); got != 0 {
		t.Fatalf("best bid = %d, want 0 after full execute", got)
	}
	if b.bids.Size() != 0 {
		t.Fatalf("level not removed: size=%d", b.bids.Size())
	}
}

func TestApplyExecuteUsesEventPriceOverOrderPrice(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(feed.Event{Kind: feed.KindExecuteOrder, OrderID: 1, Quantity: 5, Price: 99})

	if got := b.LastExecPrice(); got != 99 {
		t.Fatalf("last exec price = %d, want 99", got)
	}
}

func TestApplyDeleteRemovesOrder(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(addEvent(2, feed.SideBuy, 100, 5, 1, 2))
	b.Apply(feed.Event{Kind: feed.KindDeleteOrder, OrderID: 1})

	if got := b.BestBidQuantity(); got != 5 {
		t.Fatalf("aggregate = %d, want 5", got)
	}

	b.Apply(feed.Event{Kind: feed.KindDeleteOrder, OrderID: 2})
	if got := b.BestBidPrice(); got != 0 {
		t.Fatalf("best bid = %d, want 0 after deleting last order", got)
	}
}

func TestApplyExecuteUnknownOrderWarns(t *testing.T) {
	h := &recordingHandler{}
	b := New(h)
	b.Apply(feed.Event{Kind: feed.KindExecuteOrder, OrderID: 99, Quantity: 1})

	if len(h.warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", h.warnings)
	}
}

func TestApplyDeleteUnknownOrderWarns(t *testing.T) {
	h := &recordingHandler{}
	b := New(h)
	b.Apply(feed.Event{Kind: feed.KindDeleteOrder, OrderID: 99})

	if len(h.warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", h.warnings)
	}
}

func TestApplyAddDuplicateIDEvictsPrevious(t *testing.T) {
	h := &recordingHandler{}
	b := New(h)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(addEvent(1, feed.SideBuy, 100, 20, 2, 1))

	if got := b.BestBidQuantity(); got != 20 {
		t.Fatalf("aggregate = %d, want 20 (stale order evicted)", got)
	}
	if len(h.warnings) != 1 {
		t.Fatalf("expected 1 duplicate-id warning, got %v", h.warnings)
	}
}

func TestApplyStateChangeTracksTradingOpen(t *testing.T) {
	b := New(nil)
	if b.TradingOpen() {
		t.Fatalf("expected trading closed initially")
	}
	b.Apply(feed.Event{Kind: feed.KindStateChange, StateString: feed.SentinelContinuousTrading})
	if !b.TradingOpen() {
		t.Fatalf("expected trading open")
	}
	b.Apply(feed.Event{Kind: feed.KindStateChange, StateString: feed.SentinelEndOfDay})
	if b.TradingOpen() {
		t.Fatalf("expected trading closed after end-of-day sentinel")
	}
}

func TestFIFOOrderingWithinLevel(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 5, 1))
	b.Apply(addEvent(2, feed.SideBuy, 100, 10, 3, 1))
	b.Apply(addEvent(3, feed.SideBuy, 100, 10, 3, 2))

	level := b.bids.Find(100)
	if level == nil {
		t.Fatalf("expected level at 100")
	}
	var order []uint64
	for n := level.head; n != nil; n = n.next {
		order = append(order, n.ID)
	}
	want := []uint64{2, 3, 1}
	if len(order) != len(want) {
		t.Fatalf("FIFO order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("FIFO order = %v, want %v", order, want)
		}
	}
}

func TestSnapshotNSkipsZeroAggregateLevels(t *testing.T) {
	b := New(nil)
	b.Apply(addEvent(1, feed.SideBuy, 100, 10, 1, 1))
	b.Apply(addEvent(2, feed.SideBuy, 90, 5, 1, 2))
	b.Apply(addEvent(3, feed.SideBuy, 95, 0, 1, 3)) // level 95 holds an order but zero aggregate

	bids, _ := b.SnapshotN(5)
	if len(bids) != 2 || bids[0].Price != 100 || bids[1].Price != 90 {
		t.Fatalf("unexpected snapshot: %+v", bids)
	}
}

func TestAddWithZeroPriceOrQuantityWarns(t *testing.T) {
	h := &recordingHandler{}
	b := New(h)
	b.Apply(addEvent(1, feed.SideBuy, 0, 10, 1, 1))
	b.Apply(addEvent(2, feed.SideBuy, 100, 0, 1, 1))

	if len(h.warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", h.warnings)
	}
}
