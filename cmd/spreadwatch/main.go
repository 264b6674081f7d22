// Command spreadwatch replays a length-framed market-data feed through
// an order book and a spread-watching strategy, printing trades and a
// final summary.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/onurkoc/spreadwatch/book"
	"github.com/onurkoc/spreadwatch/dispatch"
	"github.com/onurkoc/spreadwatch/feed"
	"github.com/onurkoc/spreadwatch/journal"
	"github.com/onurkoc/spreadwatch/strategy"
)

type options struct {
	quiet      bool
	instrument uint
	orderQty   uint64
	maxPos     int64
	minPos     int64
	priceTick  uint
	journal    string
}

func main() {
	var opts options
	flag.BoolVar(&opts.quiet, "quiet", false, "suppress per-batch event and snapshot output")
	flag.BoolVar(&opts.quiet, "q", false, "alias for --quiet")
	flag.UintVar(&opts.instrument, "instrument", 1, "target instrument id")
	flag.Uint64Var(&opts.orderQty, "order-qty", 100, "strategy order size")
	flag.Int64Var(&opts.maxPos, "max-pos", 500, "maximum long position")
	flag.Int64Var(&opts.minPos, "min-pos", -500, "minimum (most negative) short position")
	flag.UintVar(&opts.priceTick, "price-tick", 10, "minor-unit price tick")
	flag.StringVar(&opts.journal, "journal", "", "write a zstd-compressed audit journal to this path")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <feed-file>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, opts options, out, errOut *os.File) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var jrn *journal.Journal
	if opts.journal != "" {
		jrn, err = journal.Open(opts.journal)
		if err != nil {
			return err
		}
		defer jrn.Close()
	}

	d := diag{w: errOut}
	b := book.New(d)

	sh := &stratPrinter{out: out, journal: jrn}
	strat := strategy.New(strategy.Config{
		OrderQty:  opts.orderQty,
		MaxPos:    opts.maxPos,
		MinPos:    opts.minPos,
		PriceTick: uint32(opts.priceTick),
	}, sh)

	dec := feed.NewDecoder(f)
	dh := &dispatchPrinter{out: out, diag: d, book: b, quiet: opts.quiet, journal: jrn}
	loop := dispatch.New(dec, b, strat, uint32(opts.instrument), dh)
	loop.Run()

	stats := loop.Stats()
	tl := decimal.New(int64(strat.RealizedPnL()), 0).Div(decimal.New(1000, 0)).Round(2)
	fmt.Fprintf(out, "[FINAL] batches=%d msgs=%d pos=%d pnl=%d converted to TL: %s TL)\n",
		stats.Batches, stats.Messages, strat.Position(), strat.RealizedPnL(), tl.StringFixed(2))

	if !opts.quiet {
		ds := dec.Stats()
		fmt.Fprintf(out, "[DECODE] packets=%d discarded=%d truncated=%d messages=%d state=%d add=%d execute=%d delete=%d other=%d short=%d\n",
			ds.Packets, ds.PacketsDiscarded, ds.PacketsTruncated, ds.Messages,
			ds.StateChanges, ds.AddOrders, ds.ExecuteOrders, ds.DeleteOrders, ds.OtherMessages, ds.ShortMessages)
	}

	return nil
}

// dispatchPrinter renders day-boundary and per-batch output, and
// forwards events to the journal when one is enabled.
type dispatchPrinter struct {
	out     *os.File
	diag    diag
	book    *book.Book
	quiet   bool
	journal *journal.Journal
}

func (p *dispatchPrinter) OnDayStart() {
	fmt.Fprintln(p.out, "[DAY START] Continuous trading begins.")
}

func (p *dispatchPrinter) OnDayEnd() {
	fmt.Fprintln(p.out, "[DAY END] Market closed.")
}

func (p *dispatchPrinter) OnBatch(nanosec uint32, events []feed.Event) {
	if p.journal != nil {
		for _, e := range events {
			if err := p.journal.AppendEvent(e); err != nil {
				p.diag.OnWarn(fmt.Sprintf("journal append failed: %v", err))
			}
		}
	}
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "batch ns=%d events=%d\n", nanosec, len(events))
	bids, asks := p.book.SnapshotN(3)
	for _, lvl := range bids {
		fmt.Fprintf(p.out, "  bid %d @ %d\n", lvl.Quantity, lvl.Price)
	}
	for _, lvl := range asks {
		fmt.Fprintf(p.out, "  ask %d @ %d\n", lvl.Quantity, lvl.Price)
	}
}

func (p *dispatchPrinter) OnWarn(msg string) {
	p.diag.OnWarn(msg)
}

// stratPrinter renders trade and settlement outcomes.
type stratPrinter struct {
	out     *os.File
	journal *journal.Journal
}

func (p *stratPrinter) OnTrade(side feed.Side, qty uint64, price uint32, position, pnl int64) {
	fmt.Fprintf(p.out, "[TRADE] %s %d @ %d pos=%d pnl=%d\n", side, qty, price, position, pnl)
	if p.journal != nil {
		_ = p.journal.AppendTrade(side, qty, price, position, pnl)
	}
}

func (p *stratPrinter) OnSettle(lastExecPrice uint32, position, pnl int64) {
	fmt.Fprintf(p.out, "[EOD] Close. last_exec_price=%d final_pos=%d final_pnl=%d\n", lastExecPrice, position, pnl)
}
