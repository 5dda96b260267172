package irfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"ilmerge/internal/ir"
)

// Compressed reports whether path names an xz compressed snapshot.
func Compressed(path string) bool {
	return strings.HasSuffix(path, ".xz")
}

// Open decodes the snapshot at path into prog.
func Open(path string, prog *ir.Program) ([]*ir.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = bufio.NewReader(f)
	if Compressed(path) {
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		r = zr
	}
	mods, err := Decode(r, prog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mods, nil
}

// DecodeFile decodes a snapshot already read into memory; name selects
// decompression the way Open does.
func DecodeFile(name string, data []byte, prog *ir.Program) ([]*ir.Module, error) {
	var r io.Reader = bytes.NewReader(data)
	if Compressed(name) {
		zr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		r = zr
	}
	mods, err := Decode(r, prog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return mods, nil
}

// Save encodes prog to path through a temporary file.
func Save(path string, prog *ir.Program) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".irpk-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()
	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var zw *xz.Writer
	if Compressed(path) {
		if zw, err = xz.NewWriter(bw); err != nil {
			return err
		}
		w = zw
	}
	if err = Encode(w, prog); err != nil {
		return err
	}
	if zw != nil {
		if err = zw.Close(); err != nil {
			return err
		}
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
