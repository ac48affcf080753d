package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/spf13/afero"
)

// minCompressSize is the smallest file size the writer attempts to
// compress. Below this, zlib overhead tends to make the stored form larger
// than the input.
const minCompressSize = 256

// scratchChunkSize is the buffer size used while copying the temp file into
// the final, encrypted output.
const scratchChunkSize = 16 * 1024

// StatusFunc receives human-readable progress messages during Create.
type StatusFunc func(message string)

// ProgressFunc receives a monotone progress value in [0, 1] during Create.
type ProgressFunc func(fraction float64)

// Creator builds an LSTGRETROARC v2 archive from a set of files relative to
// a base directory. Callers queue files with AddFile, then call Create
// exactly once. A Creator is single-use and not safe for concurrent use.
type Creator struct {
	files  []string
	fs     afero.Fs
	logger *slog.Logger
}

// NewCreator returns a Creator that stages its temp file through fs. A nil
// fs defaults to the OS filesystem; a nil logger defaults to
// slog.Default().
func NewCreator(fs afero.Fs, logger *slog.Logger) *Creator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Creator{fs: fs, logger: logger}
}

// AddFile queues relativePath (accepted with either slash style, stored
// internally with forward slashes) for inclusion in the next Create.
func (c *Creator) AddFile(relativePath string) {
	c.files = append(c.files, normalizeName(relativePath))
}

// Create writes the archive to outputPath, reading source files from
// baseDir. onStatus and onProgress are optional and, if provided, are
// invoked synchronously on the calling goroutine; they must not mutate c.
// On any failure, the temp file is removed before Create returns.
func (c *Creator) Create(baseDir, outputPath string, onStatus StatusFunc, onProgress ProgressFunc) error {
	status := func(msg string) {
		if onStatus != nil {
			onStatus(msg)
		}
	}
	progress := func(v float64) {
		if onProgress != nil {
			onProgress(v)
		}
	}

	progress(0.0)

	headerBase, headerStep := HeaderKey(MasterKey)

	base := normalizeName(baseDir)
	if base != "" && !strings.HasSuffix(base, "/") {
		base += "/"
	}

	tmpPath := outputPath + ".tmp"
	tmpFile, err := c.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("archive: create temp file %q: %w", tmpPath, err)
	}
	cleanupTmp := func() { c.fs.Remove(tmpPath) }

	status("Writing header")

	header := Header{
		Magic:      Magic,
		Version:    VersionCurrent,
		EntryCount: uint32(len(c.files)),
	}
	if _, err := tmpFile.Write(EncodeHeader(header)); err != nil {
		tmpFile.Close()
		cleanupTmp()
		return fmt.Errorf("archive: write header stub: %w", err)
	}

	progress(0.1)

	entries, err := c.stageFiles(tmpFile, base, headerBase, headerStep, status, progress)
	if err != nil {
		tmpFile.Close()
		cleanupTmp()
		return err
	}

	status("Writing entries info")
	metaBegin, err := tmpFile.Seek(0, io.SeekCurrent)
	if err != nil {
		tmpFile.Close()
		cleanupTmp()
		return fmt.Errorf("archive: locate directory offset: %w", err)
	}

	compMeta, err := buildDirectoryBlock(entries)
	if err != nil {
		tmpFile.Close()
		cleanupTmp()
		return err
	}
	if _, err := tmpFile.Write(compMeta); err != nil {
		tmpFile.Close()
		cleanupTmp()
		return fmt.Errorf("archive: write directory: %w", err)
	}

	header.HeaderOffset = uint32(metaBegin)
	header.HeaderSize = uint32(len(compMeta))
	if _, err := tmpFile.Seek(headerOffsetFieldOffset, io.SeekStart); err != nil {
		tmpFile.Close()
		cleanupTmp()
		return fmt.Errorf("archive: patch header: %w", err)
	}
	patch := make([]byte, 0, 8)
	patch = binary.LittleEndian.AppendUint32(patch, header.HeaderOffset)
	patch = binary.LittleEndian.AppendUint32(patch, header.HeaderSize)
	if _, err := tmpFile.Write(patch); err != nil {
		tmpFile.Close()
		cleanupTmp()
		return fmt.Errorf("archive: patch header: %w", err)
	}

	status("Encrypting archive")
	progress(0.95)

	err = c.encryptToOutput(tmpFile, outputPath, header, headerBase, headerStep, entries)
	tmpFile.Close()
	cleanupTmp()
	if err != nil {
		return err
	}

	status("Done")
	progress(1.0)
	return nil
}

// stageFiles implements phase 1: write each file's (possibly compressed)
// plaintext body into tmpFile and build its directory Entry.
func (c *Creator) stageFiles(tmpFile afero.File, base string, headerBase, headerStep byte,
	status StatusFunc, progress ProgressFunc) ([]Entry, error) {

	entries := make([]Entry, 0, len(c.files))
	n := len(c.files)
	var step float64
	if n > 0 {
		step = (0.75 - 0.10) / float64(n)
	}

	for i, relPath := range c.files {
		status(fmt.Sprintf("Processing [%s]", relPath))

		fullPath := filepath.Join(base, relPath)
		content, err := afero.ReadFile(c.fs, fullPath)
		if err != nil {
			return nil, fmt.Errorf("archive: read source file %q: %w", fullPath, err)
		}

		offset, err := tmpFile.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("archive: locate write offset: %w", err)
		}

		e := Entry{
			Path:       relPath,
			SizeFull:   uint32(len(content)),
			SizeStored: uint32(len(content)),
			OffsetPos:  uint32(offset),
			CRC32:      crc32.ChecksumIEEE(content),
		}
		e.KeyBase, e.KeyStep = FileKey(relPath, headerBase, headerStep)

		stored := content
		if len(content) >= minCompressSize {
			compressed, err := deflate(content)
			if err == nil {
				e.CompressionType = CompressionZlib
				e.SizeStored = uint32(len(compressed))
				stored = compressed
			} else {
				c.logger.Warn("archive: compression failed, storing uncompressed", "path", relPath, "error", err)
			}
		}

		if len(stored) > 0 {
			if _, err := tmpFile.Write(stored); err != nil {
				return nil, fmt.Errorf("archive: write staged body %q: %w", relPath, err)
			}
		}

		entries = append(entries, e)
		progress(0.10 + step*float64(i))
	}

	return entries, nil
}

// buildDirectoryBlock serializes every entry (each preceded by its leading
// record-size tag) and deflates the result.
func buildDirectoryBlock(entries []Entry) ([]byte, error) {
	var flat bytes.Buffer
	for _, e := range entries {
		size, err := RecordSize(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
		}
		tag := binary.LittleEndian.AppendUint32(nil, size)
		flat.Write(tag)

		record, err := Serialize(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
		}
		flat.Write(record)
	}

	compressed, err := deflate(flat.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailure, err)
	}
	return compressed, nil
}

// encryptToOutput implements phase 3: copy tmpFile into outputPath through
// the cipher, header+directory sharing one continuous keystream and each
// entry body starting its own.
func (c *Creator) encryptToOutput(tmpFile afero.File, outputPath string, header Header,
	headerBase, headerStep byte, entries []Entry) error {

	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("archive: rewind temp file: %w", err)
	}

	dest, err := c.fs.Create(outputPath)
	if err != nil {
		return fmt.Errorf("archive: create output %q: %w", outputPath, err)
	}
	defer dest.Close()

	buf := make([]byte, scratchChunkSize)

	// 1) header
	if _, err := io.ReadFull(tmpFile, buf[:HeaderSize]); err != nil {
		return fmt.Errorf("archive: read staged header: %w", err)
	}
	headerKeystream := headerBase
	Shift(buf[:HeaderSize], &headerKeystream, headerStep)
	if _, err := dest.Write(buf[:HeaderSize]); err != nil {
		return fmt.Errorf("archive: write encrypted header: %w", err)
	}

	// 2) each entry body, independent keystream
	for _, e := range entries {
		if err := copyEncrypted(tmpFile, dest, int64(e.OffsetPos), int64(e.SizeStored), e.KeyBase, e.KeyStep, buf); err != nil {
			return fmt.Errorf("archive: encrypt entry %q: %w", e.Path, err)
		}
	}

	// 3) directory, continuing the header keystream
	if err := copyEncrypted(tmpFile, dest, int64(header.HeaderOffset), int64(header.HeaderSize), headerKeystream, headerStep, buf); err != nil {
		return fmt.Errorf("archive: encrypt directory: %w", err)
	}

	return nil
}

// copyEncrypted copies size bytes from offset in src to the same offset in
// dst, applying the v2 stream cipher seeded with (base, step) as it goes.
func copyEncrypted(src afero.File, dst afero.File, offset, size int64, base, step byte, scratch []byte) error {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := dst.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	remaining := size
	for remaining > 0 {
		toRead := int64(len(scratch))
		if remaining < toRead {
			toRead = remaining
		}
		n, err := src.Read(scratch[:toRead])
		if n > 0 {
			Shift(scratch[:n], &base, step)
			if _, werr := dst.Write(scratch[:n]); werr != nil {
				return werr
			}
			remaining -= int64(n)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if n == 0 {
			break
		}
	}
	return nil
}

// deflate zlib-compresses src.
func deflate(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
