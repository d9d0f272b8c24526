package symmetric

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// EncryptFile encrypts inPath into outPath, streaming through the file
func (c *Context) EncryptFile(ctx context.Context, inPath, outPath string) error {
	return c.processFile(ctx, inPath, outPath, Encrypting)
}

// DecryptFile decrypts inPath into outPath, streaming through the file
func (c *Context) DecryptFile(ctx context.Context, inPath, outPath string) error {
	return c.processFile(ctx, inPath, outPath, Decrypting)
}

// processFile removes the partial output when anything fails
func (c *Context) processFile(ctx context.Context, inPath, outPath string, dir Direction) (err error) {
	op := dir.String() + " file"

	in, err := os.Open(inPath)
	if err != nil {
		return &Error{Op: op, Kind: KindIO, Err: err}
	}
	defer in.Close()

	if same, serr := sameFile(in, outPath); serr == nil && same {
		return &Error{Op: op, Kind: KindConfig, Err: fmt.Errorf("%w: %s", ErrSameFile, outPath)}
	}

	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &Error{Op: op, Kind: KindIO, Err: err}
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = &Error{Op: op, Kind: KindIO, Err: cerr}
		}
		if err != nil {
			os.Remove(outPath)
		}
	}()

	w := NewWriter(ctx, bufio.NewWriterSize(out, ChunkSize), c, dir)
	if _, err := io.Copy(w, bufio.NewReaderSize(in, ChunkSize)); err != nil {
		w.Close()
		return wrap(op, err)
	}
	return wrap(op, w.Close())
}

func sameFile(in *os.File, outPath string) (bool, error) {
	a, err := in.Stat()
	if err != nil {
		return false, err
	}
	b, err := os.Stat(outPath)
	if err != nil {
		return false, err
	}
	return os.SameFile(a, b), nil
}
