package config

const (
	defaultBackupDir          = "~/.local/share/platter/backups"
	defaultLogDir             = "~/.local/share/platter/logs"
	defaultCacheDir           = "~/.cache/platter"
	defaultARMCachePath       = "~/.cache/platter/armcache.db"
	defaultBackupTimeout      = 10800
	defaultInfoTimeout        = 120
	defaultFingerprintTimeout = 30
	defaultIdentifyTimeout    = 300
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BackupDir: defaultBackupDir,
			LogDir:    defaultLogDir,
			CacheDir:  defaultCacheDir,
		},
		MakeMKV: MakeMKV{
			BackupTimeout: defaultBackupTimeout,
			InfoTimeout:   defaultInfoTimeout,
		},
		Drives: Drives{
			AutoEject:          false,
			FingerprintTimeout: defaultFingerprintTimeout,
		},
		Identification: Identification{
			Enabled: false,
			Timeout: defaultIdentifyTimeout,
		},
		ARMCache: ARMCache{
			Enabled: true,
			Path:    defaultARMCachePath,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Backups:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
