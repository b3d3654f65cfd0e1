package events

// ring keeps the most recent cap values, overwriting the oldest.
type ring[T any] struct {
	data  []T
	next  int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{data: make([]T, capacity)}
}

func (r *ring[T]) cap() int {
	return len(r.data)
}

func (r *ring[T]) len() int {
	return r.count
}

func (r *ring[T]) insert(val T) {
	if len(r.data) == 0 {
		return
	}
	r.data[r.next] = val
	r.next = (r.next + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// iterate from the oldest to the newest value until fn returns false.
func (r *ring[T]) iterate(fn func(val T) bool) {
	start := (r.next - r.count + len(r.data)) % max(len(r.data), 1)
	for i := 0; i < r.count; i++ {
		if !fn(r.data[(start+i)%len(r.data)]) {
			return
		}
	}
}
