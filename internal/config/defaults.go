package config

const (
	defaultLibraryRoot       = "~/music"
	defaultDataDir           = "~/.local/share/shellac"
	defaultLogDir            = "~/.local/share/shellac/logs"
	defaultWorkers           = 4
	defaultChunkSize         = 200
	defaultBusyTimeoutMillis = 5000
	defaultCacheKiB          = 8192
	defaultHashChunkKiB      = 64
	defaultFuzzyThreshold    = 0.8
	defaultCertainThreshold  = 0.95
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

func defaultExtensions() []string {
	return []string{".mp3", ".flac", ".m4a", ".ogg", ".opus", ".wav", ".wma", ".aac", ".aiff"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryRoot: defaultLibraryRoot,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
		},
		Scanner: Scanner{
			Extensions: defaultExtensions(),
			Workers:    defaultWorkers,
		},
		Store: Store{
			ChunkSize:         defaultChunkSize,
			BusyTimeoutMillis: defaultBusyTimeoutMillis,
			CacheKiB:          defaultCacheKiB,
		},
		Hashing: Hashing{
			ChunkKiB: defaultHashChunkKiB,
		},
		Matching: Matching{
			FuzzyThreshold:   defaultFuzzyThreshold,
			CertainThreshold: defaultCertainThreshold,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
