package forward

// capture is the worker-local growable buffer that accumulates origin
// bytes for post-stream insertion. It implements a doubling growth
// policy: each grow doubles capacity to at least accumulated+chunk.
//
// Go's append cannot be made to fail the way a C realloc can, so the
// "grow allocation fails, capture becomes permanently dead" behavior is
// modeled as a configurable ceiling: once growing would carry the
// buffer past ceiling, capture dies instead of growing further, because
// a response that large can never pass the store's per-entry cap
// regardless.
type capture struct {
	buf     []byte
	ceiling int64
	dead    bool
}

func newCapture(ceiling int64) *capture {
	return &capture{ceiling: ceiling}
}

// live reports whether capture is still accumulating bytes.
func (c *capture) live() bool {
	return !c.dead
}

// append adds chunk to the capture buffer, growing by doubling. Once
// the would-be size exceeds ceiling, capture dies and its buffer is
// released; streaming to the client is unaffected by this (append
// returns nothing; the caller only consults live()).
func (c *capture) append(chunk []byte) {
	if c.dead {
		return
	}

	needed := int64(len(c.buf)) + int64(len(chunk))
	if needed > c.ceiling {
		c.dead = true
		c.buf = nil
		return
	}

	if cap(c.buf) < int(needed) {
		newCap := cap(c.buf)
		if newCap == 0 {
			newCap = 1
		}
		for int64(newCap) < needed {
			newCap *= 2
		}
		if int64(newCap) > c.ceiling {
			newCap = int(c.ceiling)
		}
		grown := make([]byte, len(c.buf), newCap)
		copy(grown, c.buf)
		c.buf = grown
	}

	c.buf = append(c.buf, chunk...)
}

// bytes returns the accumulated payload. Only meaningful when live().
func (c *capture) bytes() []byte {
	return c.buf
}
