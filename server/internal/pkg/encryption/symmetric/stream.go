package symmetric

import (
	"context"
	"io"

	"github.com/golang/glog"
)

// ChunkSize is how much a Reader pulls from its source at once, and the
// largest run a Writer hands to the mode per step.
const ChunkSize = 64 * 1024

// maxEmptyReads bounds how often a source may return 0, nil in a row
const maxEmptyReads = 100

// carry is the block bookkeeping shared by Reader and Writer. It holds the
// bytes that do not yet form a processable run: less than one block when
// encrypting, up to one block plus a partial block when decrypting, because
// the last ciphertext block has to be decrypted together with the unpadding.
type carry struct {
	c         *Context
	dir       Direction
	remainder []byte
}

func newCarry(c *Context, dir Direction) carry {
	return carry{c: c, dir: dir, remainder: make([]byte, 0, 2*c.BlockSize())}
}

// feed appends chunk to the remainder and transforms every processable block
func (s *carry) feed(ctx context.Context, chunk []byte) ([]byte, error) {
	bs := s.c.BlockSize()
	buf := make([]byte, len(s.remainder)+len(chunk))
	copy(buf, s.remainder)
	copy(buf[len(s.remainder):], chunk)

	n := len(buf) / bs * bs
	if s.dir == Decrypting && n > 0 {
		n -= bs
	}
	if n == 0 {
		s.remainder = append(s.remainder[:0], buf...)
		return nil, nil
	}

	out, err := s.c.run(ctx, s.dir, buf[:n])
	if err != nil {
		return nil, wrap(s.dir.String(), err)
	}
	s.remainder = append(s.remainder[:0], buf[n:]...)
	return out, nil
}

// finish transforms the remainder as the end of the message
func (s *carry) finish(ctx context.Context) ([]byte, error) {
	if glog.V(2) {
		glog.Infof("symmetric: finalizing %s stream with %d held back bytes", s.dir, len(s.remainder))
	}
	out, err := s.c.final(ctx, s.dir, s.remainder)
	s.remainder = s.remainder[:0]
	return out, err
}

// Reader transforms the bytes pulled from a source. It is not safe for
// concurrent use.
type Reader struct {
	ctx    context.Context
	src    io.Reader
	state  carry
	in     []byte
	out    []byte
	off    int
	eof    bool
	closed bool
	err    error
}

// NewReader returns a Reader that encrypts or decrypts src through c. The
// context is checked while blocks are processed.
func NewReader(ctx context.Context, src io.Reader, c *Context, dir Direction) *Reader {
	return &Reader{
		ctx:   ctx,
		src:   src,
		state: newCarry(c, dir),
		in:    make([]byte, ChunkSize),
	}
}

// EncryptingReader reads the ciphertext of src
func EncryptingReader(ctx context.Context, src io.Reader, c *Context) *Reader {
	return NewReader(ctx, src, c, Encrypting)
}

// DecryptingReader reads the plaintext of src
func DecryptingReader(ctx context.Context, src io.Reader, c *Context) *Reader {
	return NewReader(ctx, src, c, Decrypting)
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, &Error{Op: "read", Kind: KindClosed, Err: ErrClosed}
	}
	if len(p) == 0 {
		return 0, nil
	}

	for empty := 0; r.off == len(r.out); empty++ {
		if r.err != nil {
			return 0, r.err
		}
		if r.eof {
			return 0, io.EOF
		}
		if empty == maxEmptyReads {
			return 0, io.ErrNoProgress
		}
		r.fill()
	}

	n := copy(p, r.out[r.off:])
	r.off += n
	return n, nil
}

// fill pulls one chunk from the source and replaces the output buffer
func (r *Reader) fill() {
	n, err := r.src.Read(r.in)

	var out []byte
	if n > 0 {
		processed, perr := r.state.feed(r.ctx, r.in[:n])
		if perr != nil {
			r.err = perr
			return
		}
		out = processed
	}

	switch {
	case err == io.EOF:
		final, ferr := r.state.finish(r.ctx)
		if ferr != nil {
			r.err = ferr
		} else {
			out = append(out, final...)
		}
		r.eof = true
	case err != nil:
		r.err = err
	}

	r.out, r.off = out, 0
}

// Close releases the source. It closes the source at most once, if it is an
// io.Closer.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.out, r.off = nil, 0
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// flusher is implemented by buffered sinks such as *bufio.Writer
type flusher interface {
	Flush() error
}

// Writer transforms the bytes written to it and forwards the result to a
// sink. The final block only reaches the sink on Close. It is not safe for
// concurrent use.
type Writer struct {
	ctx    context.Context
	dst    io.Writer
	state  carry
	closed bool
	err    error
}

// NewWriter returns a Writer that encrypts or decrypts into dst through c
func NewWriter(ctx context.Context, dst io.Writer, c *Context, dir Direction) *Writer {
	return &Writer{
		ctx:   ctx,
		dst:   dst,
		state: newCarry(c, dir),
	}
}

// EncryptingWriter writes the ciphertext of everything written to it to dst
func EncryptingWriter(ctx context.Context, dst io.Writer, c *Context) *Writer {
	return NewWriter(ctx, dst, c, Encrypting)
}

// DecryptingWriter writes the plaintext of everything written to it to dst
func DecryptingWriter(ctx context.Context, dst io.Writer, c *Context) *Writer {
	return NewWriter(ctx, dst, c, Decrypting)
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, &Error{Op: "write", Kind: KindClosed, Err: ErrClosed}
	}
	if w.err != nil {
		return 0, w.err
	}

	written := 0
	for len(p) > 0 {
		chunk := p[:min(len(p), ChunkSize)]
		out, err := w.state.feed(w.ctx, chunk)
		if err != nil {
			w.err = err
			return written, err
		}
		if len(out) > 0 {
			if _, err := w.dst.Write(out); err != nil {
				w.err = err
				return written, err
			}
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// Close writes the final block, flushes the sink and closes it if it is an
// io.Closer. Only the first call does anything.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.err
	if err == nil {
		err = w.finish()
	}
	if c, ok := w.dst.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *Writer) finish() error {
	final, err := w.state.finish(w.ctx)
	if err != nil {
		return err
	}
	if len(final) > 0 {
		if _, err := w.dst.Write(final); err != nil {
			return err
		}
	}
	if f, ok := w.dst.(flusher); ok {
		return f.Flush()
	}
	return nil
}
