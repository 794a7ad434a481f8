package execshell

import "bytes"

// BoundedBuffer retains at most limit bytes and silently drops the rest.
type BoundedBuffer struct {
	limit     int
	buffer    bytes.Buffer
	truncated bool
}

// NewBoundedBuffer constructs a buffer that keeps the first limit bytes written to it.
func NewBoundedBuffer(limit int) *BoundedBuffer {
	if limit <= 0 {
		limit = defaultStandardErrorLimitConstant
	}
	return &BoundedBuffer{limit: limit}
}

// Write stores as much of data as fits and always reports full consumption so writers never block.
func (boundedBuffer *BoundedBuffer) Write(data []byte) (int, error) {
	remainingCapacity := boundedBuffer.limit - boundedBuffer.buffer.Len()
	if remainingCapacity <= 0 {
		if len(data) > 0 {
			boundedBuffer.truncated = true
		}
		return len(data), nil
	}
	if len(data) > remainingCapacity {
		boundedBuffer.buffer.Write(data[:remainingCapacity])
		boundedBuffer.truncated = true
		return len(data), nil
	}
	boundedBuffer.buffer.Write(data)
	return len(data), nil
}

// String returns the retained bytes.
func (boundedBuffer *BoundedBuffer) String() string {
	return boundedBuffer.buffer.String()
}

// Truncated reports whether any bytes were dropped.
func (boundedBuffer *BoundedBuffer) Truncated() bool {
	return boundedBuffer.truncated
}
