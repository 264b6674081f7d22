// Package book maintains a per-instrument price-time priority limit
// order book: two price-ordered sides (bids descending, asks
// ascending), each a FIFO-ordered AVL tree of price levels, plus an
// O(1) order-id index. It applies decoded feed.Events mutatively and
// never fails — a malformed or inconsistent event is logged through
// Handler and otherwise ignored, per the feed's recovery contract.
package book

import (
	"fmt"

	"github.com/onurkoc/spreadwatch/feed"
)

// maxSaneQuantity bounds what an execute quantity can plausibly be
// before it is flagged as suspicious (but still applied).
const maxSaneQuantity = 1_000_000_000

// PriceLevel is a read-only view of one side's aggregate at a price,
// as returned by SnapshotN.
type PriceLevel struct {
	Price    uint32
	Quantity uint64
}

// Book is a single instrument's order book.
type Book struct {
	bids *avlTree // descending: best bid first
	asks *avlTree // ascending: best ask first

	index map[uint64]*orderNode

	tradingOpen   bool
	lastExecPrice uint32

	handler Handler
}

// New creates an empty Book. A nil handler discards all warnings.
func New(handler Handler) *Book {
	if handler == nil {
		handler = DefaultHandler{}
	}
	return &Book{
		bids:    newAVLTree(true),
		asks:    newAVLTree(false),
		index:   make(map[uint64]*orderNode),
		handler: handler,
	}
}

func (b *Book) warnf(format string, args ...any) {
	b.handler.OnWarn(fmt.Sprintf(format, args...))
}

func (b *Book) sideTree(side feed.Side) *avlTree {
	if side == feed.SideBuy {
		return b.bids
	}
	return b.asks
}

// TradingOpen reports whether the book is currently in the
// continuous-trading state.
func (b *Book) TradingOpen() bool { return b.tradingOpen }

// LastExecPrice is the price of the most recent execution, or 0 if
// none has occurred.
func (b *Book) LastExecPrice() uint32 { return b.lastExecPrice }

// HasTop reports whether both sides currently have any level.
func (b *Book) HasTop() bool {
	return !b.bids.Empty() && !b.asks.Empty()
}

// BestBidPrice returns the highest bid price with positive aggregate
// quantity, or 0 if there is none.
func (b *Book) BestBidPrice() uint32 {
	if l := b.bids.firstNonEmpty(); l != nil {
		return l.price
	}
	return 0
}

// BestBidQuantity returns the aggregate quantity at BestBidPrice.
func (b *Book) BestBidQuantity() uint64 {
	if l := b.bids.firstNonEmpty(); l != nil {
		return l.aggregateQuantity
	}
	return 0
}

// BestAskPrice returns the lowest ask price with positive aggregate
// quantity, or 0 if there is none.
func (b *Book) BestAskPrice() uint32 {
	if l := b.asks.firstNonEmpty(); l != nil {
		return l.price
	}
	return 0
}

// BestAskQuantity returns the aggregate quantity at BestAskPrice.
func (b *Book) BestAskQuantity() uint64 {
	if l := b.asks.firstNonEmpty(); l != nil {
		return l.aggregateQuantity
	}
	return 0
}

// SnapshotN returns up to n (price, aggregate quantity) levels per
// side, in each side's natural best-first order, skipping any level
// whose aggregate is zero.
func (b *Book) SnapshotN(n int) (bids, asks []PriceLevel) {
	return snapshotSide(b.bids, n), snapshotSide(b.asks, n)
}

func snapshotSide(t *avlTree, n int) []PriceLevel {
	out := make([]PriceLevel, 0, n)
	for node := t.First(); node != nil && len(out) < n; node = t.successor(node) {
		if node.aggregateQuantity == 0 {
			continue
		}
		out = append(out, PriceLevel{Price: node.price, Quantity: node.aggregateQuantity})
	}
	return out
}

// Apply mutates the book according to event.Kind. It never fails:
// references to unknown orders are reported via Handler.OnWarn and
// skipped; zero prices/quantities and suspicious execute quantities
// are reported the same way and the event is still applied.
func (b *Book) Apply(e feed.Event) {
	switch e.Kind {
	case feed.KindStateChange:
		b.applyStateChange(e)
	case feed.KindAddOrder:
		b.applyAdd(e)
	case feed.KindExecuteOrder:
		b.applyExecute(e)
	case feed.KindDeleteOrder:
		b.applyDelete(e)
	default:
		// KindOther carries nothing actionable.
	}
}

func (b *Book) applyStateChange(e feed.Event) {
	b.tradingOpen = e.StateString == feed.SentinelContinuousTrading
}

func (b *Book) applyAdd(e feed.Event) {
	if e.Price == 0 {
		b.warnf("add order %d: zero price", e.OrderID)
	}
	if e.Quantity == 0 {
		b.warnf("add order %d: zero quantity", e.OrderID)
	}

	if existing, ok := b.index[e.OrderID]; ok {
		// Open question resolved per spec: evict-then-add rather than
		// leak the stale FIFO entry.
		b.warnf("add order %d: duplicate id, evicting previous order", e.OrderID)
		b.removeOrder(existing)
	}

	tree := b.sideTree(e.Side)
	level := tree.Find(e.Price)
	if level == nil {
		level = newLevelNode(e.Price)
		tree.Insert(level)
	}

	node := &orderNode{Order: Order{
		ID:          e.OrderID,
		Side:        e.Side,
		Price:       e.Price,
		Quantity:    e.Quantity,
		RankingTime: e.RankingTime,
		RankingSeq:  e.RankingSeq,
	}}
	level.insertOrdered(node)
	b.index[e.OrderID] = node
}

func (b *Book) applyExecute(e feed.Event) {
	node, ok := b.index[e.OrderID]
	if !ok {
		b.warnf("execute order %d: unknown order id", e.OrderID)
		return
	}
	if e.Quantity == 0 {
		b.warnf("execute order %d: zero quantity", e.OrderID)
	}
	if e.Quantity > maxSaneQuantity {
		b.warnf("execute order %d: suspicious quantity %d", e.OrderID, e.Quantity)
	}

	price := e.Price
	if price == 0 {
		price = node.Price
	}

	if e.Quantity >= node.Quantity {
		b.removeOrder(node)
	} else {
		node.level.aggregateQuantity -= e.Quantity
		node.Quantity -= e.Quantity
	}
	b.lastExecPrice = price
}

func (b *Book) applyDelete(e feed.Event) {
	node, ok := b.index[e.OrderID]
	if !ok {
		b.warnf("delete order %d: unknown order id", e.OrderID)
		return
	}
	b.removeOrder(node)
}

// removeOrder splices node out of its level's FIFO, removes the level
// if it has emptied, and drops the order from the index.
func (b *Book) removeOrder(node *orderNode) {
	level := node.level
	level.remove(node)
	delete(b.index, node.ID)

	if level.empty() {
		if level.aggregateQuantity != 0 {
			// Per spec: the feed may carry executes without a fully
			// corresponding order entry. Preserve this coercion rather
			// than "fixing" it — it is a documented feed quirk, not a
			// bug in this book.
			b.warnf("level %d emptied with stale aggregate %d, coercing to zero", level.price, level.aggregateQuantity)
			level.aggregateQuantity = 0
		}
		b.sideTree(node.Side).Remove(level)
	}
}
