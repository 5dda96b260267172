package bytesink

import (
	"bytes"
	"errors"
	"testing"
)

func TestCompressedUintRoundTrip(t *testing.T) {
	cases := []struct {
		v     uint32
		width int
	}{
		{0, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x3FFF, 2},
		{0x4000, 4},
		{0x1FFFFFFE, 4},
	}
	for _, tc := range cases {
		w := New(8)
		if err := w.CompressedUint(tc.v); err != nil {
			t.Fatalf("encode %#x: %v", tc.v, err)
		}
		if w.Len() != tc.width {
			t.Fatalf("encode %#x: width %d, want %d", tc.v, w.Len(), tc.width)
		}
		got, err := NewReader(w.Bytes()).CompressedUint()
		if err != nil {
			t.Fatalf("decode %#x: %v", tc.v, err)
		}
		if got != tc.v {
			t.Fatalf("round trip %#x: got %#x", tc.v, got)
		}
	}
}

func TestCompressedUintKnownBytes(t *testing.T) {
	w := New(16)
	for _, v := range []uint32{0x03, 0x80, 0x2E57, 0x4000} {
		if err := w.CompressedUint(v); err != nil {
			t.Fatal(err)
		}
	}
	want := []byte{0x03, 0x80, 0x80, 0xAE, 0x57, 0xC0, 0x00, 0x40, 0x00}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x, want % x", w.Bytes(), want)
	}
}

func TestCompressedUintRejectsLargeValues(t *testing.T) {
	w := New(4)
	err := w.CompressedUint(0x20000000)
	if !errors.Is(err, ErrCompressedRange) {
		t.Fatalf("expected ErrCompressedRange, got %v", err)
	}
	if w.Len() != 0 {
		t.Fatalf("failed encode must not write bytes")
	}
}

func TestCompressedIntRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 3, -3, 63, -64, 64, -65, 8191, -8192, 8192, -8193, 1<<28 - 1, -(1 << 28)} {
		w := New(4)
		if err := w.CompressedInt(v); err != nil {
			t.Fatalf("encode %d: %v", v, err)
		}
		got, err := NewReader(w.Bytes()).CompressedInt()
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip %d: got %d", v, got)
		}
	}
}

func TestSeekOverwritesAndGrows(t *testing.T) {
	w := New(0)
	w.U32(0xAAAAAAAA)
	w.U16(0xBBBB)
	w.Seek(2)
	w.U8(0x11)
	if w.Len() != 6 {
		t.Fatalf("overwrite changed length: %d", w.Len())
	}
	w.Seek(10)
	w.U8(0x22)
	if w.Len() != 11 {
		t.Fatalf("seek past end: len %d", w.Len())
	}
	want := []byte{0xAA, 0xAA, 0x11, 0xAA, 0xBB, 0xBB, 0, 0, 0, 0, 0x22}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x, want % x", w.Bytes(), want)
	}
}

func TestAlignAndPatch(t *testing.T) {
	w := New(0)
	w.U8(1)
	w.Align(4)
	if w.Len() != 4 {
		t.Fatalf("align: len %d", w.Len())
	}
	w.U32(0)
	w.PatchU32(4, 0x01020304)
	if got := w.Bytes()[4:8]; !bytes.Equal(got, []byte{4, 3, 2, 1}) {
		t.Fatalf("patch: % x", got)
	}
	if w.Position() != 8 {
		t.Fatalf("patch moved the cursor to %d", w.Position())
	}
}

func TestStringEncodings(t *testing.T) {
	w := New(0)
	if err := w.SerString("Ab"); err != nil {
		t.Fatal(err)
	}
	w.NullSerString()
	w.UTF16("hé", true)
	w.CString("x")
	want := []byte{2, 'A', 'b', 0xFF, 'h', 0, 0xE9, 0, 0, 0, 'x', 0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x, want % x", w.Bytes(), want)
	}

	r := NewReader(w.Bytes())
	s, ok, err := r.SerString()
	if err != nil || !ok || s != "Ab" {
		t.Fatalf("SerString = %q %v %v", s, ok, err)
	}
	if _, ok, _ := r.SerString(); ok {
		t.Fatalf("expected null string marker")
	}
	raw, _ := r.Bytes(4)
	text, err := DecodeUTF16(raw)
	if err != nil || text != "hé" {
		t.Fatalf("DecodeUTF16 = %q %v", text, err)
	}
}
