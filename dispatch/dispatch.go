// Package dispatch drives the pull loop that ties the feed decoder,
// the order book, and the strategy together: it pulls packets, filters
// events down to one target instrument, groups them into
// same-nanosecond batches, and runs the strategy once per batch after
// the book has absorbed every event in it.
package dispatch

import (
	"github.com/onurkoc/spreadwatch/book"
	"github.com/onurkoc/spreadwatch/feed"
	"github.com/onurkoc/spreadwatch/strategy"
)

// Handler observes batch boundaries and day transitions as the loop
// runs, independent of the strategy's own trade/settle callbacks.
type Handler interface {
	OnDayStart()
	OnDayEnd()
	OnBatch(nanosec uint32, events []feed.Event)
	OnWarn(msg string)
}

// DefaultHandler discards every callback.
type DefaultHandler struct{}

func (DefaultHandler) OnDayStart()                 {}
func (DefaultHandler) OnDayEnd()                   {}
func (DefaultHandler) OnBatch(uint32, []feed.Event) {}
func (DefaultHandler) OnWarn(string)                {}

// Stats tallies what the loop observed across the whole run.
type Stats struct {
	Batches  int
	Messages int
}

// Loop runs the batching/dispatch algorithm against dec for a single
// target instrument, applying events to b and invoking strat once per
// batch. It returns once the decoder reaches end of stream or the
// end-of-day sentinel is observed for the target instrument.
type Loop struct {
	dec              *feed.Decoder
	b                *book.Book
	strat            *strategy.Strategy
	targetInstrument uint32
	handler          Handler

	stats Stats

	batch        []feed.Event
	haveBatch    bool
	batchNanosec uint32

	dayStarted bool
	dayEnded   bool
}

// New creates a Loop wired to decode from dec, apply to b, and drive
// strat, restricted to targetInstrument. A nil handler discards all
// callbacks.
func New(dec *feed.Decoder, b *book.Book, strat *strategy.Strategy, targetInstrument uint32, handler Handler) *Loop {
	if handler == nil {
		handler = DefaultHandler{}
	}
	return &Loop{
		dec:              dec,
		b:                b,
		strat:            strat,
		targetInstrument: targetInstrument,
		handler:          handler,
	}
}

// Stats returns a snapshot of the loop's running counters.
func (l *Loop) Stats() Stats { return l.stats }

// Run pulls packets until the decoder is exhausted or the end-of-day
// sentinel terminates the run early, flushing the final batch in
// either case.
func (l *Loop) Run() {
	for {
		events, err := l.dec.NextPacket()
		if err != nil {
			break
		}
		if l.processPacket(events) {
			break
		}
	}
	l.flush()
}

// processPacket applies one packet's target-instrument events to the
// batching state machine. It returns true if the end-of-day sentinel
// terminated the run.
func (l *Loop) processPacket(events []feed.Event) bool {
	for _, e := range events {
		l.stats.Messages++
		if e.InstrumentID != l.targetInstrument {
			continue
		}

		if !l.haveBatch || e.Nanosec != l.batchNanosec {
			l.flush()
			l.batchNanosec = e.Nanosec
			l.haveBatch = true
		}

		l.b.Apply(e)
		l.batch = append(l.batch, e)
		l.trackDayBoundary(e)

		if e.Kind == feed.KindStateChange && e.StateString == feed.SentinelEndOfDay {
			l.flush()
			return true
		}
	}
	return false
}

func (l *Loop) trackDayBoundary(e feed.Event) {
	if e.Kind != feed.KindStateChange {
		return
	}
	if !l.dayStarted && e.StateString == feed.SentinelContinuousTrading {
		l.dayStarted = true
		l.handler.OnDayStart()
	}
	if !l.dayEnded && e.StateString == feed.SentinelEndOfDay {
		l.dayEnded = true
		l.handler.OnDayEnd()
	}
}

// flush runs the strategy over the current batch, post-hoc, and
// clears batching state. It is a no-op if no batch is open.
func (l *Loop) flush() {
	if !l.haveBatch {
		return
	}
	l.stats.Batches++
	l.handler.OnBatch(l.batchNanosec, l.batch)
	l.strat.OnBatch(l.b, l.batch)

	l.batch = nil
	l.haveBatch = false
}
