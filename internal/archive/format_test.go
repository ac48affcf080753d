package archive

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Magic:        Magic,
		Version:      VersionCurrent,
		EntryCount:   3,
		HeaderOffset: 512,
		HeaderSize:   128,
	}
	buf := EncodeHeader(h)
	if len(buf) != HeaderSize {
		t.Fatalf("EncodeHeader produced %d bytes, want %d", len(buf), HeaderSize)
	}

	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
	if !MagicMatches(got) {
		t.Error("MagicMatches(got) = false, want true")
	}
}

func TestMagicMismatch(t *testing.T) {
	h := Header{Magic: [MagicLen]byte{'x', 'x', 'x', 'x', 'x', 'x', 'x', 'x'}}
	if MagicMatches(h) {
		t.Error("MagicMatches matched a garbage magic")
	}
}

func TestDecodeHeaderShortBuffer(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize-1)); err == nil {
		t.Error("DecodeHeader accepted a short buffer")
	}
}
