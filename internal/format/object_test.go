package format

import (
	"errors"
	"testing"
)

func TestAlign8(t *testing.T) {
	cases := map[int]int{0: 0, 1: 8, 8: 8, 9: 16, 20: 24, 24: 24}
	for in, want := range cases {
		if got := Align8(in); got != want {
			t.Fatalf("Align8(%d)=%d want %d", in, got, want)
		}
	}
	if AlignOSPage(4128) != 8192 {
		t.Fatalf("AlignOSPage(4128)=%d", AlignOSPage(4128))
	}
}

func TestDecodeRange(t *testing.T) {
	b := make([]byte, 64)
	PutObject(b, 24)
	r, err := DecodeRange(b)
	if err != nil {
		t.Fatalf("DecodeRange: %v", err)
	}
	if r.Size != 24 || r.Tag != TagObject || r.Tag.IsFiller() {
		t.Fatalf("unexpected range %+v", r)
	}

	PutFreeSpace(b, 32, Address(0x1234))
	r, err = DecodeRange(b)
	if err != nil {
		t.Fatalf("DecodeRange free: %v", err)
	}
	if !r.Tag.IsFiller() || FreeSpaceNext(b) != 0x1234 {
		t.Fatalf("unexpected free node %+v next=%#x", r, FreeSpaceNext(b))
	}
	SetFreeSpaceNext(b, NullAddress)
	if FreeSpaceNext(b) != NullAddress {
		t.Fatalf("SetFreeSpaceNext did not clear link")
	}
}

func TestDecodeRangeRejectsCorruption(t *testing.T) {
	b := make([]byte, 32)
	if _, err := DecodeRange(b); !errors.Is(err, ErrBadTag) {
		t.Fatalf("zeroed memory should fail with ErrBadTag, got %v", err)
	}
	PutFiller(b, 12)
	if _, err := DecodeRange(b); !errors.Is(err, ErrBadSize) {
		t.Fatalf("unaligned size should fail, got %v", err)
	}
	PutFiller(b, 64)
	if _, err := DecodeRange(b); !errors.Is(err, ErrTruncated) {
		t.Fatalf("overrun should fail with ErrTruncated, got %v", err)
	}
	PutHeader(b, 8, TagFreeSpace)
	if _, err := DecodeRange(b); !errors.Is(err, ErrBadSize) {
		t.Fatalf("8-byte free node should fail, got %v", err)
	}
}

func TestPageHeaderRoundTrip(t *testing.T) {
	b := make([]byte, 4096)
	want := PageHeader{Kind: 2, ChunkSize: 4096, AreaOffset: PageHeaderSize, ChunkStart: 0x10000}
	PutPageHeader(b, want)
	got, err := ParsePageHeader(b)
	if err != nil {
		t.Fatalf("ParsePageHeader: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	b[0] = 'x'
	if _, err := ParsePageHeader(b); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}
