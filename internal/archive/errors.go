package archive

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrX) for context;
// callers can still errors.Is against these.
var (
	// ErrNotAnArchive means neither v2 nor v1 trial decryption produced the
	// magic identifier.
	ErrNotAnArchive = errors.New("archive: not an LSTGRETROARC archive")

	// ErrUnsupportedVersion means the magic matched but the version field
	// is neither 1 nor 2.
	ErrUnsupportedVersion = errors.New("archive: unsupported archive version")

	// ErrDirectoryCorrupt means directory decompression failed outright, or
	// no records at all could be parsed. A partial parse (some records ok,
	// a later one truncated) is not this error — see parseDirectoryRecords.
	ErrDirectoryCorrupt = errors.New("archive: directory is corrupt")

	// ErrCompressionFailure is returned by the writer when deflating the
	// directory block fails. Entry-body compression failures fall back to
	// storing the entry uncompressed instead of failing.
	ErrCompressionFailure = errors.New("archive: compression failed")

	// ErrNotFound means the requested entry does not exist in the
	// directory.
	ErrNotFound = errors.New("archive: entry not found")

	// ErrClosed means an operation was attempted on a Reader that has
	// already been closed.
	ErrClosed = errors.New("archive: reader is closed")
)
