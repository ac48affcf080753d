// Package archive implements the LSTGRETROARC single-file content archive
// format: per-file zlib compression, per-file XOR-keystream encryption keyed
// from a master key and the entry's path, and a compressed, encrypted
// metadata directory.
package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// MagicString is the full identifier embedded in the original engine. Only
// the first MagicLen bytes are stored in the on-disk header.
const MagicString = "LSTGRETROARC\x00\x00"

// MagicLen is the number of magic bytes carried in the 24-byte header.
const MagicLen = 8

// Version numbers. VersionLegacy is read-only; the writer always emits
// VersionCurrent.
const (
	VersionLegacy  uint32 = 1
	VersionCurrent uint32 = 2
)

// Compression types for an entry body.
const (
	CompressionNone byte = 0
	CompressionZlib byte = 1
)

// HeaderSize is the on-disk size, in bytes, of the archive header.
const HeaderSize = 24

// Magic is the first MagicLen bytes of MagicString, the value that must
// appear at the start of a decrypted header.
var Magic = [MagicLen]byte(func() [MagicLen]byte {
	var m [MagicLen]byte
	copy(m[:], MagicString)
	return m
}())

// Header is the 24-byte packed, little-endian archive header.
type Header struct {
	Magic        [MagicLen]byte
	Version      uint32
	EntryCount   uint32
	HeaderOffset uint32
	HeaderSize   uint32
}

// EncodeHeader packs h into its 24-byte on-disk representation.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	binary.LittleEndian.PutUint32(buf[12:16], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.HeaderOffset)
	binary.LittleEndian.PutUint32(buf[20:24], h.HeaderSize)
	return buf
}

// DecodeHeader unpacks a 24-byte buffer into a Header. The buffer is not
// validated against Magic here; callers compare h.Magic themselves since
// trial decryption may produce garbage that still needs inspecting.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("archive: short header buffer (%d bytes)", len(buf))
	}
	var h Header
	copy(h.Magic[:], buf[0:8])
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	h.EntryCount = binary.LittleEndian.Uint32(buf[12:16])
	h.HeaderOffset = binary.LittleEndian.Uint32(buf[16:20])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[20:24])
	return h, nil
}

// MagicMatches reports whether h carries the archive's magic identifier.
func MagicMatches(h Header) bool {
	return bytes.Equal(h.Magic[:], Magic[:])
}

// headerOffsetFieldOffset and headerSizeFieldOffset are the byte offsets of
// the two fields the writer patches in place after the directory is staged.
const (
	headerOffsetFieldOffset = 16
	headerSizeFieldOffset   = 20
)
