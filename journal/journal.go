// Package journal writes a zstd-compressed, append-only audit trail of
// decoded feed events and strategy trades. It is write-only: unlike a
// recovery journal, nothing in this package ever reads a journal back
// to reconstruct book or strategy state, since no run carries state
// across invocations.
package journal

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/onurkoc/spreadwatch/feed"
)

// recordKind discriminates the two kinds of record a Journal stores.
type recordKind uint8

const (
	recordEvent recordKind = iota + 1
	recordTrade
)

// Journal is an append-only, zstd-compressed audit log. It is not
// safe for concurrent use — the driver that owns it runs a single
// synchronous pull loop, so no internal locking is needed.
type Journal struct {
	file   *os.File
	buf    *bufio.Writer
	enc    *zstd.Encoder
	closed bool
}

// Open creates (or truncates) the journal file at path and wraps it
// in a buffered zstd writer.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	enc, err := zstd.NewWriter(bw)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Journal{file: f, buf: bw, enc: enc}, nil
}

// AppendEvent writes one decoded feed event to the journal.
func (j *Journal) AppendEvent(e feed.Event) error {
	return j.write(recordEvent, encodeEvent(e))
}

// AppendTrade writes one executed strategy trade to the journal.
func (j *Journal) AppendTrade(side feed.Side, qty uint64, price uint32, position, pnl int64) error {
	return j.write(recordTrade, encodeTrade(side, qty, price, position, pnl))
}

func (j *Journal) write(kind recordKind, body []byte) error {
	var header [5]byte
	header[0] = uint8(kind)
	binary.BigEndian.PutUint32(header[1:5], uint32(len(body)))
	if _, err := j.enc.Write(header[:]); err != nil {
		return err
	}
	_, err := j.enc.Write(body)
	return err
}

// Close flushes and closes the underlying zstd stream and file. It
// does not fsync: a partially-written tail on crash is an accepted
// loss for an audit trail, not a correctness concern.
func (j *Journal) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.enc.Close(); err != nil {
		_ = j.file.Close()
		return err
	}
	if err := j.buf.Flush(); err != nil {
		_ = j.file.Close()
		return err
	}
	return j.file.Close()
}

// eventWireSize is the fixed encoded size of one feed.Event record,
// independent of kind — unused fields encode as zero.
const eventWireSize = 1 + 4 + 8 + 4 + 8 + 1 + 8 + 4 + 4 + 2 + 20

func encodeEvent(e feed.Event) []byte {
	buf := make([]byte, eventWireSize)
	buf[0] = uint8(e.Kind)
	binary.BigEndian.PutUint32(buf[1:5], e.Nanosec)
	binary.BigEndian.PutUint64(buf[5:13], e.RankingTime)
	binary.BigEndian.PutUint32(buf[13:17], e.InstrumentID)
	binary.BigEndian.PutUint64(buf[17:25], e.OrderID)
	buf[25] = uint8(e.Side)
	binary.BigEndian.PutUint64(buf[26:34], e.Quantity)
	binary.BigEndian.PutUint32(buf[34:38], e.Price)
	binary.BigEndian.PutUint32(buf[38:42], e.RankingSeq)
	stateLen := len(e.StateString)
	if stateLen > 20 {
		stateLen = 20
	}
	binary.BigEndian.PutUint16(buf[42:44], uint16(stateLen))
	copy(buf[44:44+stateLen], e.StateString)
	return buf
}

const tradeWireSize = 1 + 8 + 4 + 8 + 8

func encodeTrade(side feed.Side, qty uint64, price uint32, position, pnl int64) []byte {
	buf := make([]byte, tradeWireSize)
	buf[0] = uint8(side)
	binary.BigEndian.PutUint64(buf[1:9], qty)
	binary.BigEndian.PutUint32(buf[9:13], price)
	binary.BigEndian.PutUint64(buf[13:21], uint64(position))
	binary.BigEndian.PutUint64(buf[21:29], uint64(pnl))
	return buf
}
