package data

// Window keeps the most recent values pushed into it, up to its depth.
// Older values are overwritten.  It is not safe for concurrent use.
type Window[T any] struct {
	buf  []T
	next int
	size int
}

func NewWindow[T any](depth int) *Window[T] {
	if depth < 1 {
		depth = 1
	}
	return &Window[T]{
		buf: make([]T, depth),
	}
}

func (w *Window[T]) Depth() int {
	return len(w.buf)
}

func (w *Window[T]) Length() int {
	return w.size
}

func (w *Window[T]) Push(value T) {
	w.buf[w.next] = value
	w.next = (w.next + 1) % len(w.buf)
	if w.size < len(w.buf) {
		w.size++
	}
}

// Latest returns up to count most recent values, newest first.
func (w *Window[T]) Latest(count int) []T {
	count = min(count, w.size)
	if count <= 0 {
		return nil
	}

	res := make([]T, 0, count)
	idx := w.next
	for range count {
		idx--
		if idx < 0 {
			idx += len(w.buf)
		}
		res = append(res, w.buf[idx])
	}

	return res
}

// All reports whether the count most recent values all satisfy the
// predicate.  It is false when fewer than count values were pushed.
func (w *Window[T]) All(count int, predicate func(T) bool) bool {
	if count > w.size {
		return false
	}
	for _, v := range w.Latest(count) {
		if !predicate(v) {
			return false
		}
	}
	return true
}
