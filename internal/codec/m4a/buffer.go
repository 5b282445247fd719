package m4a

import (
	"errors"
	"io"
)

// bufferSeeker is an in-memory io.WriteSeeker for assembling the rewritten
// box tree. go-mp4's Writer seeks backwards to patch ancestor sizes when a
// box is closed, which bytes.Buffer cannot do.
type bufferSeeker struct {
	buf []byte
	pos int64
}

func newBufferSeeker(capacity int) *bufferSeeker {
	return &bufferSeeker{buf: make([]byte, 0, capacity)}
}

func (b *bufferSeeker) Write(p []byte) (int, error) {
	if grow := b.pos + int64(len(p)) - int64(len(b.buf)); grow > 0 {
		b.buf = append(b.buf, make([]byte, grow)...)
	}
	copy(b.buf[b.pos:], p)
	b.pos += int64(len(p))
	return len(p), nil
}

func (b *bufferSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = b.pos + offset
	case io.SeekEnd:
		pos = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = pos
	return pos, nil
}

func (b *bufferSeeker) Bytes() []byte {
	return b.buf
}
