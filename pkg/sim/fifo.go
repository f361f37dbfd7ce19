package sim

const minFifoCapacity = 64

// fifo is a growable ring buffer of customer ids. The event loop is
// single-threaded, so no synchronization; the ring keeps dequeue O(1)
// and steady-state traffic inside one allocation.
type fifo struct {
	buf  []int
	head int
	size int
}

func newFifo() *fifo {
	return &fifo{buf: make([]int, minFifoCapacity)}
}

func (f *fifo) len() int { return f.size }

func (f *fifo) push(id int) {
	if f.size == len(f.buf) {
		f.grow()
	}
	f.buf[(f.head+f.size)&(len(f.buf)-1)] = id
	f.size++
}

// pop removes and returns the head. Callers check len first.
func (f *fifo) pop() int {
	id := f.buf[f.head]
	f.head = (f.head + 1) & (len(f.buf) - 1)
	f.size--
	return id
}

// grow doubles the ring, unrolling it so head lands back at zero.
// Capacity stays a power of two, keeping the index masks valid.
func (f *fifo) grow() {
	next := make([]int, len(f.buf)*2)
	for i := 0; i < f.size; i++ {
		next[i] = f.buf[(f.head+i)&(len(f.buf)-1)]
	}
	f.buf = next
	f.head = 0
}
