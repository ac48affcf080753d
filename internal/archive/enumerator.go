package archive

import "strings"

// enumItem is one snapshotted entry or synthetic directory matched by an
// Enumerator's scope.
type enumItem struct {
	name     string
	isDir    bool
	fileSize uint32
}

// Enumerator walks a snapshot of the entries and synthetic directories
// under one directory of an archive. It holds its Reader's mutex for its
// entire lifetime: construct it, call Next() until it returns false, then
// Close() it. No other Reader operation (including another Enumerator) may
// run while one is alive.
type Enumerator struct {
	r      *Reader
	items  []enumItem
	index  int
	closed bool
}

// NewEnumerator snapshots every entry and synthetic directory under
// directory (recursively if recursive is true) and acquires r's mutex for
// the enumerator's lifetime. Call Close when done.
func (r *Reader) NewEnumerator(directory string, recursive bool) *Enumerator {
	r.mu.Lock() // released by Enumerator.Close

	dir := dirKey(directory)

	e := &Enumerator{r: r, index: -1}
	for path, entry := range r.entries {
		if isPathMatched(path, dir, recursive) {
			e.items = append(e.items, enumItem{name: path, fileSize: entry.SizeFull})
		}
	}
	for path := range r.directories {
		if isPathMatched(path, dir, recursive) {
			e.items = append(e.items, enumItem{name: path, isDir: true})
		}
	}
	return e
}

// isPathMatched reports whether path lies under dir (a trailing-slash
// prefix, or the root if dir is empty), and — when recursive is false —
// carries no further '/' beyond the end of dir (for files) or between dir
// and its own trailing slash (for synthetic directories).
func isPathMatched(path, dir string, recursive bool) bool {
	if path == dir {
		return false // a directory does not match itself
	}
	if !strings.HasPrefix(path, dir) {
		return false
	}
	if recursive {
		return true
	}
	remainder := path[len(dir):]
	remainder = strings.TrimSuffix(remainder, "/")
	return !strings.Contains(remainder, "/")
}

// Next advances the enumerator. It returns false once every item has been
// visited.
func (e *Enumerator) Next() bool {
	e.index++
	return e.index >= 0 && e.index < len(e.items)
}

// Name returns the current item's path, or "" if Next has not been called
// or has returned false.
func (e *Enumerator) Name() string {
	if !e.valid() {
		return ""
	}
	return e.items[e.index].name
}

// NodeType returns the current item's type.
func (e *Enumerator) NodeType() NodeType {
	if !e.valid() {
		return NodeUnknown
	}
	if e.items[e.index].isDir {
		return NodeDirectory
	}
	return NodeFile
}

// FileSize returns the current item's uncompressed size, or 0 for
// directories or an invalid cursor.
func (e *Enumerator) FileSize() uint32 {
	if !e.valid() {
		return 0
	}
	return e.items[e.index].fileSize
}

// ReadFile reads the current item's contents. It fails if the cursor is
// invalid or points at a directory.
func (e *Enumerator) ReadFile() ([]byte, error) {
	if !e.valid() || e.items[e.index].isDir {
		return nil, ErrNotFound
	}
	// The enumerator already holds r.mu for its lifetime.
	return e.r.readFileLocked(e.items[e.index].name)
}

func (e *Enumerator) valid() bool {
	return e.index >= 0 && e.index < len(e.items)
}

// Close releases the Reader's mutex acquired by NewEnumerator. Calling Close
// more than once is safe.
func (e *Enumerator) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.r.mu.Unlock()
}
