package archive

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs afero.Fs, path string, content []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, content, 0o644))
}

func TestCreateEmptyArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := NewCreator(fs, slog.Default())

	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	raw, err := afero.ReadFile(fs, "/out.dat")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), HeaderSize)

	r := openFromBytes(t, fs, "/out.dat")
	defer r.Close()

	require.Equal(t, uint32(0), uint32(len(r.entries)))
	require.True(t, r.HasDirectory(""))
	require.False(t, r.HasFile("anything"))
}

func TestCreateAndReadSmallFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/hello.txt", []byte("Hello, world!"))

	c := NewCreator(fs, slog.Default())
	c.AddFile("hello.txt")
	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	r := openFromBytes(t, fs, "/out.dat")
	defer r.Close()

	require.True(t, r.HasFile("hello.txt"))
	entry := r.entries["hello.txt"]
	require.Equal(t, CompressionNone, entry.CompressionType)
	require.EqualValues(t, 13, entry.SizeFull)
	require.EqualValues(t, 13, entry.SizeStored)
	require.Equal(t, uint32(0xEBE6C6E6), entry.CRC32)

	data, err := r.ReadFile("hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello, world!", string(data))
}

func TestCreateCompressesLargeRepetitiveFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := bytes.Repeat([]byte{0x41}, 4096)
	writeFile(t, fs, "/src/big.bin", content)

	c := NewCreator(fs, slog.Default())
	c.AddFile("big.bin")
	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	r := openFromBytes(t, fs, "/out.dat")
	defer r.Close()

	entry := r.entries["big.bin"]
	require.Equal(t, CompressionZlib, entry.CompressionType)
	require.LessOrEqual(t, entry.SizeStored, uint32(30))

	data, err := r.ReadFile("big.bin")
	require.NoError(t, err)
	require.Equal(t, content, data)
}

func TestCompressionSizeBoundary(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/255.bin", bytes.Repeat([]byte{0x01}, 255))
	writeFile(t, fs, "/src/256.bin", bytes.Repeat([]byte{0x01}, 256))

	c := NewCreator(fs, slog.Default())
	c.AddFile("255.bin")
	c.AddFile("256.bin")
	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	r := openFromBytes(t, fs, "/out.dat")
	defer r.Close()

	require.Equal(t, CompressionNone, r.entries["255.bin"].CompressionType)
	require.Equal(t, CompressionZlib, r.entries["256.bin"].CompressionType)
}

func TestCreateNestedPathsBuildSyntheticDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a/b/c.txt", []byte("c"))
	writeFile(t, fs, "/src/a/b/d.txt", []byte("d"))

	c := NewCreator(fs, slog.Default())
	c.AddFile("a/b/c.txt")
	c.AddFile("a/b/d.txt")
	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	r := openFromBytes(t, fs, "/out.dat")
	defer r.Close()

	require.True(t, r.HasDirectory("a"))
	require.True(t, r.HasDirectory("a/b"))

	nonRecursive := r.NewEnumerator("a/", false)
	var names []string
	for nonRecursive.Next() {
		names = append(names, nonRecursive.Name())
	}
	nonRecursive.Close()
	require.ElementsMatch(t, []string{"a/b/"}, names)

	recursive := r.NewEnumerator("a/", true)
	names = nil
	for recursive.Next() {
		names = append(names, recursive.Name())
	}
	recursive.Close()
	require.ElementsMatch(t, []string{"a/b/", "a/b/c.txt", "a/b/d.txt"}, names)
}

func TestEmptyFileRoundTrips(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/empty.bin", []byte{})

	c := NewCreator(fs, slog.Default())
	c.AddFile("empty.bin")
	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	r := openFromBytes(t, fs, "/out.dat")
	defer r.Close()

	entry := r.entries["empty.bin"]
	require.EqualValues(t, 0, entry.SizeStored)

	data, err := r.ReadFile("empty.bin")
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestReadOffsetShiftsUniformly(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/f.txt", []byte("payload"))

	c := NewCreator(fs, slog.Default())
	c.AddFile("f.txt")
	require.NoError(t, c.Create("/src", "/out.dat", nil, nil))

	raw, err := afero.ReadFile(fs, "/out.dat")
	require.NoError(t, err)

	padded := append(bytes.Repeat([]byte{0}, 37), raw...)

	// Reader.Open needs a real file path; write the padded copy through the
	// OS filesystem so Open can read it back.
	osPath := t.TempDir() + "/padded.dat"
	writeOS(t, osPath, padded)

	r, err := Open(osPath, 37, slog.Default())
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadFile("f.txt")
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestProgressAndStatusCallbacks(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.txt", []byte("a"))
	writeFile(t, fs, "/src/b.txt", []byte("b"))

	c := NewCreator(fs, slog.Default())
	c.AddFile("a.txt")
	c.AddFile("b.txt")

	var statuses []string
	var progresses []float64
	err := c.Create("/src", "/out.dat",
		func(msg string) { statuses = append(statuses, msg) },
		func(v float64) { progresses = append(progresses, v) },
	)
	require.NoError(t, err)

	require.Contains(t, statuses, "Writing header")
	require.Contains(t, statuses, "Writing entries info")
	require.Contains(t, statuses, "Encrypting archive")
	require.Contains(t, statuses, "Done")

	require.Equal(t, 0.0, progresses[0])
	require.Equal(t, 1.0, progresses[len(progresses)-1])
	for i := 1; i < len(progresses); i++ {
		require.GreaterOrEqual(t, progresses[i], progresses[i-1])
	}
}

func TestTempFileRemovedOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := NewCreator(fs, slog.Default())
	c.AddFile("missing.txt") // never written to /src

	err := c.Create("/src", "/out.dat", nil, nil)
	require.Error(t, err)

	exists, err := afero.Exists(fs, "/out.dat.tmp")
	require.NoError(t, err)
	require.False(t, exists, "temp file must be removed on failure")
}

// openFromBytes copies path out of fs onto the OS filesystem (Reader.Open
// only understands real file paths) and opens it.
func openFromBytes(t *testing.T, fs afero.Fs, path string) *Reader {
	t.Helper()
	raw, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	osPath := t.TempDir() + "/archive.dat"
	writeOS(t, osPath, raw)

	r, err := Open(osPath, 0, slog.Default())
	require.NoError(t, err)
	return r
}
