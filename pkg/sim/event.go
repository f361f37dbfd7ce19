package sim

import "container/heap"

// eventKind orders simultaneous events: an arrival is admitted before
// a completion carrying the same timestamp, and the sequence counter
// settles what remains. The calendar is therefore a strict total
// order, which is what makes a seeded run replay identically.
type eventKind uint8

const (
	kindArrival eventKind = iota
	kindCompletion
)

func (k eventKind) String() string {
	switch k {
	case kindArrival:
		return "arrival"
	case kindCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// event is one calendar entry. Completions carry the server they free;
// arrivals carry no payload, the loop materializes the customer.
type event struct {
	at     float64
	kind   eventKind
	seq    uint64
	server int
}

// calendar is a binary heap over (at, kind, seq).
type calendar struct {
	events []event
	seq    uint64
}

func (c *calendar) Len() int { return len(c.events) }

func (c *calendar) Less(i, j int) bool {
	a, b := c.events[i], c.events[j]
	if a.at != b.at {
		return a.at < b.at
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.seq < b.seq
}

func (c *calendar) Swap(i, j int) { c.events[i], c.events[j] = c.events[j], c.events[i] }

func (c *calendar) Push(x any) { c.events = append(c.events, x.(event)) }

func (c *calendar) Pop() any {
	old := c.events
	n := len(old)
	e := old[n-1]
	c.events = old[:n-1]
	return e
}

// schedule stamps the event with the next sequence number and files it.
func (c *calendar) schedule(at float64, kind eventKind, server int) {
	c.seq++
	heap.Push(c, event{at: at, kind: kind, seq: c.seq, server: server})
}

func (c *calendar) next() event { return heap.Pop(c).(event) }

func (c *calendar) peek() event { return c.events[0] }
