// Package strategy implements a spread-watching trading strategy
// that reacts to top-of-book snapshots taken once per nanosecond
// batch, after the book has fully absorbed that batch's events.
package strategy

import (
	"github.com/onurkoc/spreadwatch/book"
	"github.com/onurkoc/spreadwatch/feed"
)

// Handler receives the strategy's observable outcomes, the way
// book.Handler decouples "what happened" from "how it is reported".
type Handler interface {
	OnTrade(side feed.Side, qty uint64, price uint32, position int64, pnl int64)
	OnSettle(lastExecPrice uint32, position int64, pnl int64)
}

// DefaultHandler discards every callback.
type DefaultHandler struct{}

func (DefaultHandler) OnTrade(feed.Side, uint64, uint32, int64, int64) {}
func (DefaultHandler) OnSettle(uint32, int64, int64)                  {}

// Config holds the strategy's tunable parameters.
type Config struct {
	OrderQty  uint64
	MaxPos    int64
	MinPos    int64
	PriceTick uint32 // defaults to 10 minor-units if zero
}

func (c Config) tightSpread() uint32 { return c.priceTick() }
func (c Config) gapSpread() uint32   { return 2 * c.priceTick() }
func (c Config) priceTick() uint32 {
	if c.PriceTick == 0 {
		return 10
	}
	return c.PriceTick
}

// Strategy is a single-instrument spread-watching state machine. It
// is driven once per nanosecond batch via OnBatch; it is not safe for
// concurrent use.
type Strategy struct {
	cfg     Config
	handler Handler

	position int64
	pnl      int64

	prevBid, prevAsk uint32
	havePrev         bool

	dayClosed bool
}

// New creates a Strategy with the given configuration. A nil handler
// discards all outcome callbacks.
func New(cfg Config, handler Handler) *Strategy {
	if handler == nil {
		handler = DefaultHandler{}
	}
	return &Strategy{cfg: cfg, handler: handler}
}

// Position returns the strategy's current signed inventory.
func (s *Strategy) Position() int64 { return s.position }

// RealizedPnL returns realized profit/loss in minor-currency units.
func (s *Strategy) RealizedPnL() int64 { return s.pnl }

// DayClosed reports whether settlement has already run.
func (s *Strategy) DayClosed() bool { return s.dayClosed }

// OnBatch runs the strategy for one nanosecond batch, after the book
// has applied every event in it. batch is the full set of events that
// shared this nanosecond for the target instrument; it is inspected
// only to detect the end-of-day sentinel.
func (s *Strategy) OnBatch(b *book.Book, batch []feed.Event) {
	if s.dayClosed {
		return
	}

	for _, e := range batch {
		if e.Kind == feed.KindStateChange && e.StateString == feed.SentinelEndOfDay {
			s.settleEOD(b)
			return
		}
	}

	if !b.TradingOpen() || !b.HasTop() || !s.havePrev {
		s.recordPrev(b)
		return
	}

	bid, ask := b.BestBidPrice(), b.BestAskPrice()
	currSpread := ask - bid
	prevSpread := s.prevAsk - s.prevBid

	if prevSpread == s.cfg.tightSpread() && currSpread == s.cfg.gapSpread() {
		switch {
		case bid == s.prevBid && ask-s.prevAsk == s.cfg.priceTick():
			// Vanished ask: the offer one tick out disappeared.
			s.tryBuy(s.prevAsk)
		case ask == s.prevAsk && s.prevBid-bid == s.cfg.priceTick():
			// Vanished bid: the bid one tick out disappeared.
			s.trySell(s.prevBid)
		}
	}

	s.recordPrev(b)
}

func (s *Strategy) recordPrev(b *book.Book) {
	s.prevBid, s.prevAsk = b.BestBidPrice(), b.BestAskPrice()
	s.havePrev = true
}

// tryBuy fills up to headroom toward MaxPos at px.
func (s *Strategy) tryBuy(px uint32) {
	headroom := s.cfg.MaxPos - s.position
	if headroom <= 0 {
		return
	}
	fill := int64(s.cfg.OrderQty)
	if fill > headroom {
		fill = headroom
	}
	s.pnl -= fill * int64(px)
	s.position += fill
	s.handler.OnTrade(feed.SideBuy, uint64(fill), px, s.position, s.pnl)
}

// trySell fills up to headroom toward MinPos at px.
func (s *Strategy) trySell(px uint32) {
	headroom := s.position - s.cfg.MinPos
	if headroom <= 0 {
		return
	}
	fill := int64(s.cfg.OrderQty)
	if fill > headroom {
		fill = headroom
	}
	s.pnl += fill * int64(px)
	s.position -= fill
	s.handler.OnTrade(feed.SideSell, uint64(fill), px, s.position, s.pnl)
}

// settleEOD marks remaining inventory at the book's last execution
// price and permanently closes the day.
func (s *Strategy) settleEOD(b *book.Book) {
	lastExec := b.LastExecPrice()
	if s.position != 0 && lastExec != 0 {
		s.pnl += s.position * int64(lastExec)
	}
	s.dayClosed = true
	s.handler.OnSettle(lastExec, s.position, s.pnl)
}
