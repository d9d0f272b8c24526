// Command cryptor encrypts and decrypts files or standard streams.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/golang/glog"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

var errNoKey = errors.New("one of -key or -passphrase is required")

type options struct {
	op      string
	in      string
	out     string
	workers int
	embedIV bool
	params  protocol.CipherParams
}

func main() {
	cfg := config.Load()

	var opts options
	var algorithm, mode, pad string
	flag.StringVar(&opts.op, "op", "encrypt", "operation: encrypt or decrypt")
	flag.StringVar(&opts.in, "in", "-", "input file, - for stdin")
	flag.StringVar(&opts.out, "out", "-", "output file, - for stdout")
	flag.StringVar(&algorithm, "algorithm", cfg.Cipher.Algorithm, "block cipher")
	flag.StringVar(&mode, "mode", cfg.Cipher.Mode, "mode of operation")
	flag.StringVar(&pad, "padding", cfg.Cipher.Padding, "padding scheme")
	flag.StringVar(&opts.params.Key, "key", "", "key, hex")
	flag.StringVar(&opts.params.Passphrase, "passphrase", "", "passphrase to derive the key from")
	flag.StringVar(&opts.params.IV, "iv", "", "IV, hex")
	flag.StringVar(&opts.params.Nonce, "nonce", "", "CTR or RANDOM_DELTA nonce, hex")
	flag.Int64Var(&opts.params.Counter, "counter", 0, "initial counter")
	flag.StringVar(&opts.params.Seed, "seed", "", "RANDOM_DELTA seed, hex")
	flag.IntVar(&opts.workers, "workers", cfg.Cipher.Workers, "parallel workers, 0 for one per CPU")
	flag.BoolVar(&opts.embedIV, "embed-iv", true, "generate the IV or nonce and store it in front of the ciphertext when none is given")
	flag.Parse()
	defer glog.Flush()

	opts.params.Algorithm = protocol.EncryptionAlgorithm(algorithm)
	opts.params.Mode = protocol.EncryptionMode(mode)
	opts.params.Padding = protocol.PaddingMode(pad)
	cfg.Cipher.Workers = opts.workers

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cipher.NewService(cfg), opts, os.Stdin, os.Stdout); err != nil {
		glog.Errorf("%s failed (%s): %v", opts.op, symmetric.Classify(err), err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *cipher.Service, opts options, stdin io.Reader, stdout io.Writer) error {
	dir, err := cipher.Direction(protocol.Operation(opts.op))
	if err != nil {
		return err
	}
	if opts.params.Key == "" && opts.params.Passphrase == "" {
		return errNoKey
	}

	header, err := embeddedIV(opts)
	if err != nil {
		return err
	}

	// plain file to file needs no header handling
	if header == nil && opts.in != "-" && opts.out != "-" {
		c, err := svc.NewContext(opts.params)
		if err != nil {
			return err
		}
		if dir == symmetric.Decrypting {
			return c.DecryptFile(ctx, opts.in, opts.out)
		}
		return c.EncryptFile(ctx, opts.in, opts.out)
	}

	src, err := openInput(opts.in, stdin)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := checkDistinct(src, opts.out, dir); err != nil {
		return err
	}
	dst, err := openOutput(opts.out, stdout)
	if err != nil {
		return err
	}

	in := bufio.NewReaderSize(src, symmetric.ChunkSize)
	out := bufio.NewWriterSize(dst, symmetric.ChunkSize)
	if err := processStream(ctx, svc, opts.params, dir, header, in, out); err != nil {
		dst.Close()
		if opts.out != "-" {
			os.Remove(opts.out)
		}
		return err
	}
	return dst.Close()
}

// ivHeader describes the IV or nonce stored in front of the ciphertext
type ivHeader struct {
	mode      modes.Kind
	blockSize int
}

// embeddedIV returns nil when the user supplied an IV or nonce, embedding is
// off or the mode needs none.
func embeddedIV(opts options) (*ivHeader, error) {
	if !opts.embedIV || opts.params.IV != "" || opts.params.Nonce != "" {
		return nil, nil
	}
	mode, err := modes.ParseKind(string(opts.params.Mode))
	if err != nil {
		return nil, err
	}
	bc, err := encryption.NewBlockCipher(string(opts.params.Algorithm))
	if err != nil {
		return nil, err
	}
	if symmetric.IVSize(mode, bc.BlockSize()) == 0 {
		return nil, nil
	}
	return &ivHeader{mode: mode, blockSize: bc.BlockSize()}, nil
}

// processStream handles the IV header, then streams the payload
func processStream(ctx context.Context, svc *cipher.Service, params protocol.CipherParams, dir symmetric.Direction, header *ivHeader, in io.Reader, out io.Writer) error {
	if header != nil {
		var iv []byte
		if dir == symmetric.Decrypting {
			iv = make([]byte, symmetric.IVSize(header.mode, header.blockSize))
			if _, err := io.ReadFull(in, iv); err != nil {
				return fmt.Errorf("reading embedded IV: %w", err)
			}
		} else {
			generated, err := symmetric.GenerateIV(header.mode, header.blockSize)
			if err != nil {
				return err
			}
			iv = generated
			if _, err := out.Write(iv); err != nil {
				return err
			}
		}
		if header.mode.UsesNonce() {
			params.Nonce = hex.EncodeToString(iv)
		} else {
			params.IV = hex.EncodeToString(iv)
		}
		glog.V(1).Infof("using embedded IV %x", iv)
	}

	c, err := svc.NewContext(params)
	if err != nil {
		return err
	}
	w := symmetric.NewWriter(ctx, out, c, dir)
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	return w.Close()
}

// checkDistinct refuses to truncate the file being read
func checkDistinct(src io.Reader, outPath string, dir symmetric.Direction) error {
	f, ok := src.(*os.File)
	if !ok || outPath == "-" {
		return nil
	}
	in, err := f.Stat()
	if err != nil {
		return nil
	}
	out, err := os.Stat(outPath)
	if err != nil || !os.SameFile(in, out) {
		return nil
	}
	return &symmetric.Error{
		Op:   dir.String() + " file",
		Kind: symmetric.KindConfig,
		Err:  fmt.Errorf("%w: %s", symmetric.ErrSameFile, outPath),
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{stdout}, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}
