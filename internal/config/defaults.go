package config

const (
	defaultDataDir         = "~/.local/share/requestarr"
	defaultLogDir          = "~/.local/share/requestarr/logs"
	defaultAPIBind         = "127.0.0.1:8585"
	defaultABSTimeout      = 10
	defaultSyncThreshold   = 0.85
	defaultSyncInterval    = 6
	defaultAudibleLanguage = "english"
	defaultStorytelLocale  = "en"
	defaultSearchTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		ABS: ABS{
			RequestTimeout: defaultABSTimeout,
		},
		Sync: Sync{
			Threshold:     defaultSyncThreshold,
			IntervalHours: defaultSyncInterval,
		},
		Search: Search{
			AudibleEnabled:  true,
			AudibleRegions:  []string{"us"},
			AudibleLanguage: defaultAudibleLanguage,
			StorytelLocale:  defaultStorytelLocale,
			RequestTimeout:  defaultSearchTimeout,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
