package archive

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// NodeType classifies a path inside an archive.
type NodeType int

const (
	NodeUnknown NodeType = iota
	NodeFile
	NodeDirectory
)

// Reader opens and reads an LSTGRETROARC archive. It owns the underlying
// file handle and an immutable directory index built once in Open. Every
// public operation except ArchivePath and SetPassword takes a single mutex;
// an Enumerator holds that mutex for
// its entire lifetime, matching the original engine's recursive-mutex
// discipline — at most one Enumerator may be alive at a time, and no other
// Reader operation may run while one is.
type Reader struct {
	mu sync.Mutex

	path       string
	file       *os.File
	readOffset int64
	version    uint32
	isLegacy   bool
	closed     bool
	logger     *slog.Logger

	entries     map[string]Entry
	directories map[string]struct{}
}

// Open opens path as an LSTGRETROARC archive. readOffset lets the archive be
// embedded inside a larger container file. If logger is nil, slog.Default()
// is used. Open is atomic: it either fully populates the reader's directory
// index or returns an error and leaves nothing to close.
func Open(path string, readOffset int64, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %q: %w", path, err)
	}

	r := &Reader{
		path:        path,
		file:        f,
		readOffset:  readOffset,
		logger:      logger,
		entries:     make(map[string]Entry),
		directories: make(map[string]struct{}),
	}

	if err := r.load(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// load performs the two-phase header detection and directory parse
// described by the format: trial-decrypt with v2 keys, fall back to v1.
func (r *Reader) load() error {
	if _, err := r.file.Seek(r.readOffset, io.SeekStart); err != nil {
		return fmt.Errorf("archive: seek to header: %w", err)
	}

	rawHeader := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r.file, rawHeader); err != nil {
		return fmt.Errorf("archive: read header: %w", err)
	}

	header, isLegacy, keyBase, keyStep, err := detectHeader(rawHeader)
	if err != nil {
		return err
	}

	if header.Version != VersionCurrent && header.Version != VersionLegacy {
		return fmt.Errorf("%w: version %d", ErrUnsupportedVersion, header.Version)
	}

	if _, err := r.file.Seek(r.readOffset+int64(header.HeaderOffset), io.SeekStart); err != nil {
		return fmt.Errorf("archive: seek to directory: %w", err)
	}

	encDir := make([]byte, header.HeaderSize)
	if _, err := io.ReadFull(r.file, encDir); err != nil {
		return fmt.Errorf("archive: read directory: %w", err)
	}

	if isLegacy {
		ShiftLegacy(encDir, &keyBase, keyStep)
	} else {
		Shift(encDir, &keyBase, keyStep)
	}

	dirBuf, err := inflateAll(encDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryCorrupt, err)
	}

	hasCRC := header.Version != VersionLegacy
	entries, directories, parsed := parseDirectoryRecords(dirBuf, header.EntryCount, hasCRC, r.logger, r.path)
	r.entries = entries
	r.directories = directories

	if header.EntryCount > 0 && parsed == 0 {
		return fmt.Errorf("%w: no directory records could be parsed", ErrDirectoryCorrupt)
	}

	r.version = header.Version
	r.isLegacy = isLegacy
	return nil
}

// parseDirectoryRecords parses up to entryCount sequential entry records out
// of buf. Each record is preceded by a uint32 size tag that is consumed but
// never used to skip — parsing always proceeds byte-by-byte through the
// record fields. A record that would overrun buf truncates the directory at
// that point and is logged as a warning, not an error: the caller keeps
// whatever parsed cleanly before it. Returns the resulting entry map,
// synthetic directory set, and the number of records successfully parsed.
func parseDirectoryRecords(buf []byte, entryCount uint32, hasCRC bool, logger *slog.Logger, archivePath string) (
	entries map[string]Entry, directories map[string]struct{}, parsed int) {

	entries = make(map[string]Entry)
	directories = make(map[string]struct{})

	for i := uint32(0); i < entryCount; i++ {
		if len(buf) < 4 {
			logger.Warn("archive: truncated directory metadata", "entry", i, "path", archivePath)
			break
		}
		// Leading uint32 record-size tag: consumed, never used to skip.
		buf = buf[4:]

		entry, rest, err := Parse(buf, hasCRC)
		if err != nil {
			logger.Warn("archive: failed to parse directory entry", "entry", i, "path", archivePath, "error", err)
			break
		}
		buf = rest

		entries[entry.Path] = entry
		collectParentDirectories(entry.Path, directories)
		parsed++
	}

	return entries, directories, parsed
}

// detectHeader tries v2 trial decryption first, then v1, returning the
// decoded header, whether it was legacy, and the keystream base/step
// advanced past the header (ready to decrypt the directory that follows).
func detectHeader(rawHeader []byte) (header Header, isLegacy bool, base, step byte, err error) {
	v2Base, v2Step := HeaderKey(MasterKey)
	buf := append([]byte(nil), rawHeader...)
	b := v2Base
	Shift(buf, &b, v2Step)
	header, err = DecodeHeader(buf)
	if err == nil && MagicMatches(header) {
		return header, false, b, v2Step, nil
	}

	legacyBase, legacyStep := HeaderKeyLegacy(MasterKey)
	buf = append([]byte(nil), rawHeader...)
	b = legacyBase
	ShiftLegacy(buf, &b, legacyStep)
	header, err = DecodeHeader(buf)
	if err == nil && MagicMatches(header) {
		return header, true, b, legacyStep, nil
	}

	return Header{}, false, 0, 0, ErrNotAnArchive
}

// inflateAll decompresses a zlib stream of unknown output size, using
// streaming inflate since the expected size is not known up front.
func inflateAll(src []byte) ([]byte, error) {
	return inflateFrom(src)
}

// inflateFrom decompresses a zlib stream when the expected output size may
// or may not be known in advance; callers that do know the size still go
// through this path and compare afterward (see readEntryData), matching the
// original engine's "decompress then check" policy.
func inflateFrom(src []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// collectParentDirectories inserts every strict prefix of filePath ending in
// '/' into dirs.
func collectParentDirectories(filePath string, dirs map[string]struct{}) {
	for i := 0; i < len(filePath); i++ {
		if filePath[i] == '/' {
			dirs[filePath[:i+1]] = struct{}{}
		}
	}
}

// normalizeName converts a caller-supplied path to the archive's internal
// forward-slash form.
func normalizeName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// dirKey converts a caller-supplied directory argument to the trailing-slash
// form used by the synthetic directory set. Empty input means the root.
func dirKey(name string) string {
	name = normalizeName(name)
	if name == "" {
		return ""
	}
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return name
}

// ArchivePath returns the path Open was called with.
func (r *Reader) ArchivePath() string {
	return r.path
}

// SetPassword is a no-op retained for interface compatibility: LSTGRETROARC
// archives only ever use the embedded master key.
func (r *Reader) SetPassword(_ string) bool {
	return false
}

// HasNode reports whether name is a known file or directory.
func (r *Reader) HasNode(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if normalizeName(name) == "" {
		return true // the root always exists
	}
	if _, ok := r.entries[normalizeName(name)]; ok {
		return true
	}
	_, ok := r.directories[dirKey(name)]
	return ok
}

// NodeType reports whether name is a file, a directory, or unknown.
func (r *Reader) NodeType(name string) NodeType {
	r.mu.Lock()
	defer r.mu.Unlock()
	if normalizeName(name) == "" {
		return NodeDirectory // the root
	}
	if _, ok := r.entries[normalizeName(name)]; ok {
		return NodeFile
	}
	if _, ok := r.directories[dirKey(name)]; ok {
		return NodeDirectory
	}
	return NodeUnknown
}

// HasFile reports whether name is a known entry.
func (r *Reader) HasFile(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[normalizeName(name)]
	return ok
}

// FileSize returns the uncompressed size of name, or 0 if it is not a known
// entry.
func (r *Reader) FileSize(name string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[normalizeName(name)]
	if !ok {
		return 0
	}
	return e.SizeFull
}

// HasDirectory reports whether name is a known synthetic directory. The
// empty path (root) always exists.
func (r *Reader) HasDirectory(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if normalizeName(name) == "" {
		return true
	}
	_, ok := r.directories[dirKey(name)]
	return ok
}

// ReadFile looks up name and returns its decrypted, decompressed, owned
// contents.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readFileLocked(name)
}

func (r *Reader) readFileLocked(name string) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	e, ok := r.entries[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return r.readEntryData(e)
}

// readEntryData implements the per-entry read pipeline: seek, read, decrypt,
// optionally inflate, verify CRC (advisory only), return.
func (r *Reader) readEntryData(e Entry) ([]byte, error) {
	if _, err := r.file.Seek(r.readOffset+int64(e.OffsetPos), io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: seek to entry %q: %w", e.Path, err)
	}

	raw := make([]byte, e.SizeStored)
	if e.SizeStored > 0 {
		if _, err := io.ReadFull(r.file, raw); err != nil {
			return nil, fmt.Errorf("archive: read entry %q: %w", e.Path, err)
		}
	}

	base := e.KeyBase
	if r.version == VersionLegacy {
		ShiftLegacy(raw, &base, e.KeyStep)
	} else {
		Shift(raw, &base, e.KeyStep)
	}

	var out []byte
	switch e.CompressionType {
	case CompressionNone:
		out = raw
	case CompressionZlib:
		if e.SizeStored > 0 {
			inflated, err := inflateFrom(raw)
			if err != nil {
				r.logger.Warn("archive: inflate failed", "path", e.Path, "error", err)
				return nil, fmt.Errorf("archive: inflate entry %q: %w", e.Path, err)
			}
			out = inflated
		}
		if uint32(len(out)) != e.SizeFull {
			r.logger.Warn("archive: inflated size mismatch", "path", e.Path,
				"expected", e.SizeFull, "got", len(out))
		}
	default:
		out = raw
	}

	if e.CRC32 != 0 && len(out) > 0 {
		actual := crc32.ChecksumIEEE(out)
		if actual != e.CRC32 {
			r.logger.Warn("archive: crc mismatch", "path", e.Path,
				"expected", fmt.Sprintf("0x%08X", e.CRC32), "got", fmt.Sprintf("0x%08X", actual))
		}
	}

	return out, nil
}

// Close releases the reader's file handle. It is safe to call Close only
// after every Enumerator created from r has been released, since enumerators
// hold r's mutex for their lifetime.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
