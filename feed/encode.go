package feed

import "encoding/binary"

// Encode* and EncodePacket are the decoder's wire-format mirror. They
// exist to drive decoder determinism tests (decode(encode(e)) == e)
// and are not used by the running dispatcher — the feed this package
// models is received, never transmitted.

func sideByte(s Side) byte {
	switch s {
	case SideBuy:
		return 'B'
	case SideSell:
		return 'S'
	default:
		return '?'
	}
}

// EncodeStateChange encodes a KindStateChange event's payload.
func EncodeStateChange(e Event) []byte {
	buf := make([]byte, stateMsgSize)
	buf[0] = 'O'
	binary.BigEndian.PutUint32(buf[1:5], e.Nanosec)
	binary.BigEndian.PutUint32(buf[5:9], e.InstrumentID)
	copy(buf[9:29], padRight(e.StateString, 20))
	return buf
}

// EncodeAddOrder encodes a KindAddOrder event's payload.
func EncodeAddOrder(e Event) []byte {
	buf := make([]byte, addMsgSize)
	buf[0] = 'A'
	binary.BigEndian.PutUint32(buf[1:5], e.Nanosec)
	binary.BigEndian.PutUint64(buf[5:13], e.OrderID)
	binary.BigEndian.PutUint32(buf[13:17], e.InstrumentID)
	buf[17] = sideByte(e.Side)
	binary.BigEndian.PutUint32(buf[18:22], e.RankingSeq)
	binary.BigEndian.PutUint64(buf[22:30], e.Quantity)
	binary.BigEndian.PutUint32(buf[30:34], e.Price)
	// buf[34:36] attrs, buf[36] lot type: left zero, unmodeled.
	binary.BigEndian.PutUint64(buf[37:45], e.RankingTime)
	return buf
}

// EncodeExecuteOrder encodes a KindExecuteOrder event's payload.
func EncodeExecuteOrder(e Event) []byte {
	buf := make([]byte, executeMsgSize)
	buf[0] = 'E'
	binary.BigEndian.PutUint32(buf[1:5], e.Nanosec)
	binary.BigEndian.PutUint64(buf[5:13], e.OrderID)
	binary.BigEndian.PutUint32(buf[13:17], e.InstrumentID)
	buf[17] = sideByte(e.Side)
	binary.BigEndian.PutUint64(buf[18:26], e.Quantity)
	// buf[26:34] match id, buf[34:38] combo, buf[38:52] reserved: zero.
	return buf
}

// EncodeDeleteOrder encodes a KindDeleteOrder event's payload.
func EncodeDeleteOrder(e Event) []byte {
	buf := make([]byte, deleteMsgSize)
	buf[0] = 'D'
	binary.BigEndian.PutUint32(buf[1:5], e.Nanosec)
	binary.BigEndian.PutUint64(buf[5:13], e.OrderID)
	binary.BigEndian.PutUint32(buf[13:17], e.InstrumentID)
	buf[17] = sideByte(e.Side)
	return buf
}

// EncodeMessage dispatches to the right Encode* for e.Kind. KindOther
// has no canonical wire form and encodes to nil.
func EncodeMessage(e Event) []byte {
	switch e.Kind {
	case KindStateChange:
		return EncodeStateChange(e)
	case KindAddOrder:
		return EncodeAddOrder(e)
	case KindExecuteOrder:
		return EncodeExecuteOrder(e)
	case KindDeleteOrder:
		return EncodeDeleteOrder(e)
	default:
		return nil
	}
}

// EncodePacket assembles a full packet — header plus length-prefixed
// messages — from already-encoded message payloads.
func EncodePacket(session string, seq uint64, messages [][]byte) []byte {
	out := make([]byte, headerSize, headerSize+packetBodySize(messages))
	copy(out[0:10], padRight(session, 10))
	binary.BigEndian.PutUint64(out[10:18], seq)
	binary.BigEndian.PutUint16(out[18:20], uint16(len(messages)))

	for _, m := range messages {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(m)))
		out = append(out, lenBuf[:]...)
		out = append(out, m...)
	}
	return out
}

func packetBodySize(messages [][]byte) int {
	n := 0
	for _, m := range messages {
		n += 2 + len(m)
	}
	return n
}

func padRight(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}
