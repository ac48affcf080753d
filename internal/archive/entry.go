package archive

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Entry is one directory record, in memory.
type Entry struct {
	Path            string // forward-slash normalized, UTF-8
	CompressionType byte
	SizeFull        uint32
	SizeStored      uint32
	OffsetPos       uint32
	KeyBase         byte
	KeyStep         byte
	CRC32           uint32
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// pathToUTF16 converts a UTF-8 path into its little-endian UTF-16 code
// units, losslessly round-tripping both BMP and non-BMP characters via
// surrogate pairs.
func pathToUTF16(path string) ([]byte, error) {
	out, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(path))
	if err != nil {
		return nil, fmt.Errorf("archive: encode path %q to utf-16: %w", path, err)
	}
	return out, nil
}

// utf16ToPath converts little-endian UTF-16 bytes back into a UTF-8 path.
func utf16ToPath(data []byte) (string, error) {
	out, _, err := transform.Bytes(utf16le.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("archive: decode utf-16 path: %w", err)
	}
	return string(out), nil
}

// RecordSize returns the byte length of Serialize(e), excluding the
// leading uint32 record-size tag the writer prepends separately.
func RecordSize(e Entry) (uint32, error) {
	buf, err := Serialize(e)
	if err != nil {
		return 0, err
	}
	return uint32(len(buf)), nil
}

// Serialize emits the on-disk v2 record layout for e:
//
//	uint32  pathCharCount
//	char16  path[pathCharCount]  (UTF-16LE)
//	uint8   compressionType
//	uint32  sizeFull
//	uint32  sizeStored
//	uint32  offsetPos
//	uint8   keyBase
//	uint8   keyStep
//	uint32  crc32Value
func Serialize(e Entry) ([]byte, error) {
	wpath, err := pathToUTF16(e.Path)
	if err != nil {
		return nil, err
	}
	charCount := uint32(len(wpath) / 2)

	buf := make([]byte, 0, 4+len(wpath)+1+4+4+4+1+1+4)
	buf = binary.LittleEndian.AppendUint32(buf, charCount)
	buf = append(buf, wpath...)
	buf = append(buf, e.CompressionType)
	buf = binary.LittleEndian.AppendUint32(buf, e.SizeFull)
	buf = binary.LittleEndian.AppendUint32(buf, e.SizeStored)
	buf = binary.LittleEndian.AppendUint32(buf, e.OffsetPos)
	buf = append(buf, e.KeyBase, e.KeyStep)
	buf = binary.LittleEndian.AppendUint32(buf, e.CRC32)
	return buf, nil
}

// Parse reads one entry record from the front of buf and returns the
// unconsumed remainder. hasCRC selects whether the trailing CRC field is
// present (true for v2, false for v1). Path separators are normalized to
// '/' after parsing.
func Parse(buf []byte, hasCRC bool) (e Entry, rest []byte, err error) {
	read := func(n int) ([]byte, error) {
		if len(buf) < n {
			return nil, fmt.Errorf("archive: truncated entry record")
		}
		field := buf[:n]
		buf = buf[n:]
		return field, nil
	}

	charCountBuf, err := read(4)
	if err != nil {
		return Entry{}, nil, err
	}
	charCount := binary.LittleEndian.Uint32(charCountBuf)

	wpath, err := read(int(charCount) * 2)
	if err != nil {
		return Entry{}, nil, err
	}
	path, err := utf16ToPath(wpath)
	if err != nil {
		return Entry{}, nil, err
	}
	e.Path = strings.ReplaceAll(path, `\`, "/")

	ctBuf, err := read(1)
	if err != nil {
		return Entry{}, nil, err
	}
	e.CompressionType = ctBuf[0]

	sizeFullBuf, err := read(4)
	if err != nil {
		return Entry{}, nil, err
	}
	e.SizeFull = binary.LittleEndian.Uint32(sizeFullBuf)

	sizeStoredBuf, err := read(4)
	if err != nil {
		return Entry{}, nil, err
	}
	e.SizeStored = binary.LittleEndian.Uint32(sizeStoredBuf)

	offsetBuf, err := read(4)
	if err != nil {
		return Entry{}, nil, err
	}
	e.OffsetPos = binary.LittleEndian.Uint32(offsetBuf)

	keyBuf, err := read(2)
	if err != nil {
		return Entry{}, nil, err
	}
	e.KeyBase, e.KeyStep = keyBuf[0], keyBuf[1]

	if hasCRC {
		crcBuf, err := read(4)
		if err != nil {
			return Entry{}, nil, err
		}
		e.CRC32 = binary.LittleEndian.Uint32(crcBuf)
	}

	return e, buf, nil
}
