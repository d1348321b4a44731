package config

const (
	defaultMachineDir          = "~/machine"
	defaultLogDir              = "~/.local/share/mpf-mc/logs"
	defaultCacheDir            = "~/.cache/mpf-mc"
	defaultSocketPath          = "~/.local/share/mpf-mc/mpf-mc.sock"
	defaultImagesDir           = "images"
	defaultSoundsDir           = "sounds"
	defaultVideosDir           = "videos"
	defaultFontsDir            = "fonts"
	defaultPollIntervalMillis  = 30
	defaultProbeTimeoutSeconds = 30
	defaultProbeCachePath      = "~/.cache/mpf-mc/probe_cache.db"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MachineDir: defaultMachineDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
			SocketPath: defaultSocketPath,
		},
		Assets: Assets{
			ImagesDir:          defaultImagesDir,
			SoundsDir:          defaultSoundsDir,
			VideosDir:          defaultVideosDir,
			FontsDir:           defaultFontsDir,
			PollIntervalMillis: defaultPollIntervalMillis,
		},
		MediaProbe: MediaProbe{
			CacheEnabled:   true,
			CachePath:      defaultProbeCachePath,
			TimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Startup:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
