// Package symmetric combines a cipher mode with a padding scheme and exposes
// the result as whole-buffer, stream and file operations.
package symmetric

import (
	"context"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/padding"
)

// Context owns one mode and one padding. Like the mode it wraps it belongs
// to a single message or stream at a time; call Init again before the next
// one.
type Context struct {
	mode modes.Mode
	pad  padding.Padding
}

// NewContext returns a context over mode and pad. The mode still needs Init.
func NewContext(mode modes.Mode, pad padding.Padding) *Context {
	return &Context{mode: mode, pad: pad}
}

// Init keys the cipher and resets the chaining state
func (c *Context) Init(key []byte, params modes.Params) error {
	return wrap("init", c.mode.Init(key, params))
}

func (c *Context) Mode() modes.Mode {
	return c.mode
}

func (c *Context) Padding() padding.Padding {
	return c.pad
}

func (c *Context) BlockSize() int {
	return c.mode.BlockSize()
}

// Encrypt pads data and encrypts it
func (c *Context) Encrypt(ctx context.Context, data []byte) ([]byte, error) {
	padded, err := c.pad.Pad(data, c.BlockSize())
	if err != nil {
		return nil, wrap("encrypt", err)
	}
	out, err := c.mode.Encrypt(ctx, padded)
	if err != nil {
		return nil, wrap("encrypt", err)
	}
	return out, nil
}

// Decrypt decrypts data and strips the padding
func (c *Context) Decrypt(ctx context.Context, data []byte) ([]byte, error) {
	plain, err := c.mode.Decrypt(ctx, data)
	if err != nil {
		return nil, wrap("decrypt", err)
	}
	out, err := c.pad.Unpad(plain, c.BlockSize())
	if err != nil {
		return nil, wrap("decrypt", err)
	}
	return out, nil
}

// Direction says which way a stream adapter transforms its data
type Direction int

const (
	Encrypting Direction = iota
	Decrypting
)

func (d Direction) String() string {
	if d == Decrypting {
		return "decrypt"
	}
	return "encrypt"
}

// run transforms a block-aligned run without touching the padding
func (c *Context) run(ctx context.Context, dir Direction, data []byte) ([]byte, error) {
	if dir == Decrypting {
		return c.mode.Decrypt(ctx, data)
	}
	return c.mode.Encrypt(ctx, data)
}

// final transforms the held back tail of a stream, padding included
func (c *Context) final(ctx context.Context, dir Direction, data []byte) ([]byte, error) {
	if dir == Decrypting {
		return c.Decrypt(ctx, data)
	}
	return c.Encrypt(ctx, data)
}
