package mqtt

// bufferedMsg stores a serialized event message for replay after reconnection.
// Preset commands are never buffered: a scene applied minutes late is wrong.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that keeps the newest messages while
// disconnected. Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // messages overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

// push appends msg, overwriting the oldest entry when full. It reports
// whether an entry was dropped.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	n := len(r.buf)
	r.buf[r.head] = msg
	r.head = (r.head + 1) % n
	if r.count == n {
		r.dropped++
		return true
	}
	r.count++
	return false
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	n := len(r.buf)
	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + n) % n
	for i := range out {
		out[i] = r.buf[(start+i)%n]
	}

	r.count = 0
	r.head = 0
	r.dropped = 0
	return out
}

func (r *ringBuffer) len() int {
	return r.count
}
