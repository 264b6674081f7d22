package feed

// Stats tracks running counters about what the Decoder has seen,
// modeled on the message-tally style of a stats handler: cheap
// bookkeeping the driver can surface in a summary line without having
// to instrument every call site itself.
type Stats struct {
	Packets          int
	PacketsDiscarded int // bad count field (0 or > maxMessageCount)
	PacketsTruncated int // a message's length prefix or payload was cut short, or its length was out of range

	Messages        int
	StateChanges    int
	AddOrders       int
	ExecuteOrders   int
	DeleteOrders    int
	OtherMessages   int
	ShortMessages   int // known kind byte, payload too short for it
}

func (s *Stats) recordEvent(e Event) {
	s.Messages++
	switch e.Kind {
	case KindStateChange:
		s.StateChanges++
	case KindAddOrder:
		s.AddOrders++
	case KindExecuteOrder:
		s.ExecuteOrders++
	case KindDeleteOrder:
		s.DeleteOrders++
	default:
		s.OtherMessages++
	}
}
