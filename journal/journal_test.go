package journal

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/onurkoc/spreadwatch/feed"
)

// readRecords decompresses path and splits it back into (kind, body)
// records using the same 5-byte header Journal.write prepends.
func readRecords(t *testing.T, path string) []struct {
	kind recordKind
	body []byte
} {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	zr, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading decompressed journal: %v", err)
	}

	var records []struct {
		kind recordKind
		body []byte
	}
	for len(data) > 0 {
		if len(data) < 5 {
			t.Fatalf("truncated record header, %d bytes left", len(data))
		}
		kind := recordKind(data[0])
		n := binary.BigEndian.Uint32(data[1:5])
		data = data[5:]
		if uint32(len(data)) < n {
			t.Fatalf("truncated record body: want %d bytes, have %d", n, len(data))
		}
		records = append(records, struct {
			kind recordKind
			body []byte
		}{kind, data[:n]})
		data = data[n:]
	}
	return records
}

func TestJournalAppendAndCloseRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.journal")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	event := feed.Event{
		Kind:         feed.KindAddOrder,
		Nanosec:      42,
		RankingTime:  9000,
		InstrumentID: 1,
		OrderID:      7,
		Side:         feed.SideBuy,
		Quantity:     100,
		Price:        10500,
		RankingSeq:   3,
	}
	if err := j.AppendEvent(event); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := j.AppendTrade(feed.SideSell, 50, 10600, -25, 1250); err != nil {
		t.Fatalf("AppendTrade: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Closing twice must be a no-op, not an error.
	if err := j.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	records := readRecords(t, path)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if records[0].kind != recordEvent {
		t.Fatalf("records[0].kind = %d, want recordEvent", records[0].kind)
	}
	if want := encodeEvent(event); !bytes.Equal(records[0].body, want) {
		t.Fatalf("event body mismatch:\ngot  %x\nwant %x", records[0].body, want)
	}

	if records[1].kind != recordTrade {
		t.Fatalf("records[1].kind = %d, want recordTrade", records[1].kind)
	}
	if want := encodeTrade(feed.SideSell, 50, 10600, -25, 1250); !bytes.Equal(records[1].body, want) {
		t.Fatalf("trade body mismatch:\ngot  %x\nwant %x", records[1].body, want)
	}
}

func TestEncodeEventTruncatesLongStateString(t *testing.T) {
	e := feed.Event{Kind: feed.KindStateChange, StateString: "this-state-name-is-longer-than-twenty-bytes"}
	buf := encodeEvent(e)
	if len(buf) != eventWireSize {
		t.Fatalf("encodeEvent length = %d, want %d", len(buf), eventWireSize)
	}
	stateLen := binary.BigEndian.Uint16(buf[42:44])
	if stateLen != 20 {
		t.Fatalf("stateLen = %d, want 20", stateLen)
	}
	if got := string(buf[44 : 44+stateLen]); got != e.StateString[:20] {
		t.Fatalf("truncated state string = %q, want %q", got, e.StateString[:20])
	}
}

func TestEncodeTradeFixedLayout(t *testing.T) {
	buf := encodeTrade(feed.SideBuy, 10, 100, -5, -500)
	if len(buf) != tradeWireSize {
		t.Fatalf("encodeTrade length = %d, want %d", len(buf), tradeWireSize)
	}
	if buf[0] != uint8(feed.SideBuy) {
		t.Fatalf("side byte = %d, want %d", buf[0], feed.SideBuy)
	}
	if got := binary.BigEndian.Uint64(buf[1:9]); got != 10 {
		t.Fatalf("qty = %d, want 10", got)
	}
	if got := binary.BigEndian.Uint32(buf[9:13]); got != 100 {
		t.Fatalf("price = %d, want 100", got)
	}
	if got := int64(binary.BigEndian.Uint64(buf[13:21])); got != -5 {
		t.Fatalf("position = %d, want -5", got)
	}
	if got := int64(binary.BigEndian.Uint64(buf[21:29])); got != -500 {
		t.Fatalf("pnl = %d, want -500", got)
	}
}
