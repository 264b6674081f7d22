package feed

import (
	"encoding/binary"
	"io"
	"strings"
)

// Decoder reads framed packets from a byte source and decodes each one
// into a sequence of Events. It is not safe for concurrent use.
//
// Failure handling follows the feed's recovery contract: a malformed
// packet is discarded and decoding continues with the next one; a
// packet truncated mid-stream yields whatever was decoded before the
// cut; a message whose payload is too short for its kind becomes a
// KindOther event and decoding continues with the next message in the
// same packet. None of these conditions stop the stream — only an
// unrecoverable read (end of source, or a torn packet header) does.
type Decoder struct {
	r      io.Reader
	stats  Stats
	hdr    [headerSize]byte
	lenBuf [2]byte
	// msgBuf is a reusable scratch buffer for message payloads. It is
	// grown as needed but never shrunk below maxMessageLength, and its
	// ownership never escapes the Decoder — NextPacket always copies
	// out of it (via the decoded Event's own fields) before reuse.
	msgBuf []byte
}

// NewDecoder creates a Decoder that reads framed packets from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:      r,
		msgBuf: make([]byte, maxMessageLength),
	}
}

// Stats returns a snapshot of the decoder's running counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// NextPacket reads and decodes the next packet's messages. It returns
// ErrEndOfStream once the source is exhausted or a packet header is
// torn beyond recovery; any other error is never returned. A nil,
// non-error result (with len(events) possibly 0) means the packet was
// discarded or truncated but the stream itself may still have more
// packets to offer.
func (d *Decoder) NextPacket() ([]Event, error) {
	if _, err := io.ReadFull(d.r, d.hdr[:]); err != nil {
		return nil, ErrEndOfStream
	}

	d.stats.Packets++
	count := binary.BigEndian.Uint16(d.hdr[18:20])
	if count == 0 || int(count) > maxMessageCount {
		d.stats.PacketsDiscarded++
		return nil, nil
	}

	events := make([]Event, 0, count)
	for i := 0; i < int(count); i++ {
		if _, err := io.ReadFull(d.r, d.lenBuf[:]); err != nil {
			d.stats.PacketsTruncated++
			return events, nil
		}
		msgLen := binary.BigEndian.Uint16(d.lenBuf[:])
		if msgLen < 1 || msgLen > maxMessageLength {
			d.stats.PacketsTruncated++
			return events, nil
		}

		if cap(d.msgBuf) < int(msgLen) {
			d.msgBuf = make([]byte, msgLen)
		}
		buf := d.msgBuf[:msgLen]
		if _, err := io.ReadFull(d.r, buf); err != nil {
			d.stats.PacketsTruncated++
			return events, nil
		}

		ev := d.decodeMessage(buf)
		d.stats.recordEvent(ev)
		events = append(events, ev)
	}

	return events, nil
}

func (d *Decoder) decodeMessage(buf []byte) Event {
	switch buf[0] {
	case 'O':
		return d.decodeStateChange(buf)
	case 'A':
		return d.decodeAddOrder(buf)
	case 'E':
		return d.decodeExecuteOrder(buf)
	case 'D':
		return d.decodeDeleteOrder(buf)
	default:
		return Event{Kind: KindOther}
	}
}

func (d *Decoder) decodeStateChange(buf []byte) Event {
	if len(buf) < stateMsgSize {
		d.stats.ShortMessages++
		return Event{Kind: KindOther}
	}
	return Event{
		Kind:         KindStateChange,
		Nanosec:      binary.BigEndian.Uint32(buf[1:5]),
		InstrumentID: binary.BigEndian.Uint32(buf[5:9]),
		StateString:  strings.TrimRight(string(buf[9:29]), " "),
	}
}

func (d *Decoder) decodeAddOrder(buf []byte) Event {
	if len(buf) < addMsgSize {
		d.stats.ShortMessages++
		return Event{Kind: KindOther}
	}
	return Event{
		Kind:         KindAddOrder,
		Nanosec:      binary.BigEndian.Uint32(buf[1:5]),
		OrderID:      binary.BigEndian.Uint64(buf[5:13]),
		InstrumentID: binary.BigEndian.Uint32(buf[13:17]),
		Side:         parseSide(buf[17]),
		RankingSeq:   binary.BigEndian.Uint32(buf[18:22]),
		Quantity:     binary.BigEndian.Uint64(buf[22:30]),
		Price:        binary.BigEndian.Uint32(buf[30:34]),
		// buf[34:36] attrs, buf[36] lot type: not represented in Event.
		RankingTime: binary.BigEndian.Uint64(buf[37:45]),
	}
}

func (d *Decoder) decodeExecuteOrder(buf []byte) Event {
	if len(buf) < executeMsgSize {
		d.stats.ShortMessages++
		return Event{Kind: KindOther}
	}
	// buf[26:34] match id, buf[34:38] combo, buf[38:52] reserved: the
	// wire carries no execution price, so Event.Price stays zero and
	// the book falls back to the resting order's own price.
	return Event{
		Kind:         KindExecuteOrder,
		Nanosec:      binary.BigEndian.Uint32(buf[1:5]),
		OrderID:      binary.BigEndian.Uint64(buf[5:13]),
		InstrumentID: binary.BigEndian.Uint32(buf[13:17]),
		Side:         parseSide(buf[17]),
		Quantity:     binary.BigEndian.Uint64(buf[18:26]),
	}
}

func (d *Decoder) decodeDeleteOrder(buf []byte) Event {
	if len(buf) < deleteMsgSize {
		d.stats.ShortMessages++
		return Event{Kind: KindOther}
	}
	return Event{
		Kind:         KindDeleteOrder,
		Nanosec:      binary.BigEndian.Uint32(buf[1:5]),
		OrderID:      binary.BigEndian.Uint64(buf[5:13]),
		InstrumentID: binary.BigEndian.Uint32(buf[13:17]),
		Side:         parseSide(buf[17]),
	}
}
