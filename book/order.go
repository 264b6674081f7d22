package book

import "github.com/onurkoc/spreadwatch/feed"

// Order is a resting limit order's identity and remaining quantity.
// Identity (ID, Side, Price) is immutable once added; Quantity shrinks
// via partial execution.
type Order struct {
	ID          uint64
	Side        feed.Side
	Price       uint32
	Quantity    uint64
	RankingTime uint64
	RankingSeq  uint32
}

// orderNode is an Order with intrusive doubly-linked list pointers so
// a price level's FIFO can splice in O(1) once the node is known, and
// the order index can hold a direct pointer to it (no secondary
// lookup once an order id resolves to a node).
type orderNode struct {
	Order
	prev, next *orderNode
	level      *levelNode
}

// rankingExceeds reports whether o's ranking key sorts strictly after
// other's, i.e. other must be consumed before o.
func (o Order) rankingExceeds(other Order) bool {
	if o.RankingTime != other.RankingTime {
		return o.RankingTime > other.RankingTime
	}
	return o.RankingSeq > other.RankingSeq
}
