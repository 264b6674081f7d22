package feed

import "errors"

// Sentinel errors returned by Decoder.NextPacket.
var (
	// ErrEndOfStream is returned once the underlying reader is exhausted,
	// or a packet header is truncated beyond recovery. Callers should
	// stop pulling packets when they see this.
	ErrEndOfStream = errors.New("feed: end of stream")
)

const (
	// maxMessageCount bounds a packet's declared message count; packets
	// claiming more are assumed corrupt and discarded whole.
	maxMessageCount = 10000

	// maxMessageLength is the largest payload a single length-prefixed
	// message may declare (the length prefix is 16 bits).
	maxMessageLength = 65535

	// headerSize is the fixed packet header: 10-byte session id,
	// 8-byte sequence number, 2-byte message count.
	headerSize = 20

	stateMsgSize   = 1 + 4 + 4 + 20
	addMsgSize     = 1 + 4 + 8 + 4 + 1 + 4 + 8 + 4 + 2 + 1 + 8
	executeMsgSize = 1 + 4 + 8 + 4 + 1 + 8 + 8 + 4 + 7 + 7
	deleteMsgSize  = 1 + 4 + 8 + 4 + 1
)
