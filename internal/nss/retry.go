package nss

// DefaultBufferSize is the initial buffer size used by [Retry].
const DefaultBufferSize = 1024

// Retry calls lookup with buffers of growing size until the result is not a
// buffer size failure, or the buffer would exceed maxSize bytes.
func Retry[R any](initialSize, maxSize int, lookup func(buf []byte) Result[R]) Result[R] {
	if initialSize <= 0 {
		initialSize = DefaultBufferSize
	}

	size := initialSize
	for {
		res := lookup(make([]byte, size))
		if res.Status != StatusTryAgain || res.Required == 0 {
			return res
		}

		next := max(size*2, res.Required)
		if next > maxSize {
			return res
		}
		size = next
	}
}
