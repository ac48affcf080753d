package config

// Config holds app configuration for the lstgretroarc CLI. main.go reads
// only LogLevel, LogOutputDir and MasterKey from it; the subcommands take
// their archive, source and output paths from positional arguments and their
// own flags, always open archives at offset 0, and do not consult the other
// fields.
type Config struct {
	// ArchivePath is the .dat archive to open, for inspect/extract.
	ArchivePath string `mapstructure:"archive"`

	// SourceDir is the directory packed into a new archive.
	SourceDir string `mapstructure:"source"`

	// OutputDir is where extract writes files, or where pack writes the
	// finished archive (interpreted per-subcommand).
	OutputDir string `mapstructure:"output"`

	// ReadOffset lets the archive be opened as though embedded inside a
	// larger container file, starting at this byte offset.
	ReadOffset int64 `mapstructure:"read_offset"`

	// Directory scopes an inspect/extract enumerator to one archive
	// directory; empty means the root.
	Directory string `mapstructure:"directory"`

	// Recursive controls whether the enumerator descends into
	// subdirectories.
	Recursive bool `mapstructure:"recursive"`

	// MasterKey overrides the embedded master key. Empty means "use the
	// engine's built-in key".
	MasterKey string `mapstructure:"master_key"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
