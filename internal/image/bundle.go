package image

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// PEWriter places an image into an executable container. ilmerge ships
// only BundleWriter; a PE backend implements the same contract.
type PEWriter interface {
	WriteImage(ctx context.Context, img *Image, w io.Writer) error
}

// Bundle file layout: magic, version, flags, then the msgpack payload,
// lz4-framed when flagLZ4 is set.
var bundleMagic = [4]byte{'I', 'L', 'M', 'B'}

const (
	bundleVersion uint8 = 1
	flagLZ4       uint8 = 1 << 0
)

// ErrNotBundle reports input that does not start with the bundle magic.
var ErrNotBundle = errors.New("image: not an ilmerge bundle")

// BundleWriter stores images as bundles.
type BundleWriter struct {
	Compress bool
}

func (b BundleWriter) WriteImage(ctx context.Context, img *Image, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteBundle(w, img, b.Compress)
}

// WriteBundle encodes img to w.
func WriteBundle(w io.Writer, img *Image, compress bool) error {
	var flags uint8
	if compress {
		flags |= flagLZ4
	}
	header := append(bundleMagic[:], bundleVersion, flags)
	if _, err := w.Write(header); err != nil {
		return err
	}
	if !compress {
		return msgpack.NewEncoder(w).Encode(img)
	}
	zw := lz4.NewWriter(w)
	if err := msgpack.NewEncoder(zw).Encode(img); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// ReadBundle decodes an image written by WriteBundle.
func ReadBundle(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	var header [6]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotBundle, err)
	}
	if !bytes.Equal(header[:4], bundleMagic[:]) {
		return nil, ErrNotBundle
	}
	if header[4] != bundleVersion {
		return nil, fmt.Errorf("image: unsupported bundle version %d", header[4])
	}
	var payload io.Reader = br
	if header[5]&flagLZ4 != 0 {
		payload = lz4.NewReader(br)
	}
	var img Image
	if err := msgpack.NewDecoder(payload).Decode(&img); err != nil {
		return nil, fmt.Errorf("image: decode bundle: %w", err)
	}
	return &img, nil
}

// SaveBundle writes img to path through a temporary file.
func SaveBundle(path string, img *Image, compress bool) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".bundle-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	bw := bufio.NewWriter(f)
	if err = WriteBundle(bw, img, compress); err != nil {
		_ = f.Close()
		return err
	}
	if err = bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// LoadBundle reads the bundle at path.
func LoadBundle(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := ReadBundle(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
