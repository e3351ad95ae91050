package connection

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Message represents a Diameter message
type Message struct {
	Length uint32
	Header []byte
	Body   []byte
}

// Buffer pool for message reading, sized to the common-case message
// length. A message larger than the pool's buffer still reads
// correctly (readerBufferSlice falls back to a fresh allocation) but
// doesn't benefit from pooling, so operators fronting traffic with
// unusually large AVP groups (bulk Multiple-Services-Credit-Control,
// long Route-Record chains after many hops) can raise this via
// SetBufferPoolSize to keep the common path allocation-free.
var readerBufferPool sync.Pool

var bufferPoolSize int64 = 1 << 12 // 4096 bytes

// SetBufferPoolSize changes the buffer size new pooled buffers are
// allocated at. Existing pooled buffers of the old size are drained
// naturally as putReaderBuffer stops re-pooling them. Not safe to call
// concurrently with in-flight reads; callers set this once at startup.
func SetBufferPoolSize(n int) {
	if n > 0 {
		atomic.StoreInt64(&bufferPoolSize, int64(n))
	}
}

func poolBufferSize() int {
	return int(atomic.LoadInt64(&bufferPoolSize))
}

func newReaderBuffer() *bytes.Buffer {
	size := poolBufferSize()
	if v := readerBufferPool.Get(); v != nil {
		b := v.(*bytes.Buffer)
		if cap(b.Bytes()) == size {
			return b
		}
	}
	return bytes.NewBuffer(make([]byte, size))
}

func putReaderBuffer(b *bytes.Buffer) {
	if cap(b.Bytes()) == poolBufferSize() {
		b.Reset()
		readerBufferPool.Put(b)
	}
}

func readerBufferSlice(buf *bytes.Buffer, l int) []byte {
	size := poolBufferSize()
	b := buf.Bytes()
	if l <= size && cap(b) >= size {
		return b[:l]
	}
	return make([]byte, l)
}

// ReadMessage reads a binary stream from the reader and parses it into a Message
func ReadMessage(reader io.Reader) (*Message, error) {
	buf := newReaderBuffer()
	defer putReaderBuffer(buf)
	m := &Message{}
	err := m.readHeader(reader, buf)
	if err != nil {
		return nil, err
	}
	if err = m.readBody(reader, buf); err != nil {
		return m, err
	}
	return m, nil
}

// readHeader reads the message header
func (m *Message) readHeader(r io.Reader, buf *bytes.Buffer) error {
	b := buf.Bytes()[:20]

	_, err := io.ReadFull(r, b)
	if err != nil {
		return err
	}

	m.Length = uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	if m.Length < 20 {
		return errors.New("invalid header: message length less than 20 bytes")
	}

	m.Header = make([]byte, 20)
	copy(m.Header, b)

	return nil
}

// readBody reads the message body
func (m *Message) readBody(r io.Reader, buf *bytes.Buffer) error {
	if m.Length <= 20 {
		m.Body = []byte{}
		return nil
	}

	bodyLen := int(m.Length - 20)
	b := readerBufferSlice(buf, bodyLen)

	n, err := io.ReadFull(r, b)
	if err != nil {
		return fmt.Errorf("readBody error: %v, %d bytes read", err, n)
	}

	m.Body = make([]byte, bodyLen)
	copy(m.Body, b)

	return nil
}
