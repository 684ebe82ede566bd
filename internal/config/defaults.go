package config

const (
	defaultSpeed              = 1.0
	defaultMinSpeed           = 0.01
	defaultMaxSpeed           = 1.5
	defaultFPS                = 50.0
	defaultAutoplay           = true
	defaultChunkBudgetMillis  = 200
	defaultSettleMillis       = 100
	defaultHTTPTimeoutSeconds = 60
	defaultUserAgent          = "scenereplay/dev"
	defaultViewerBind         = "127.0.0.1:7490"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Playback: Playback{
			Speed:      defaultSpeed,
			MinSpeed:   defaultMinSpeed,
			MaxSpeed:   defaultMaxSpeed,
			DefaultFPS: defaultFPS,
			Autoplay:   defaultAutoplay,
		},
		Indexing: Indexing{
			ChunkBudgetMillis: defaultChunkBudgetMillis,
			SettleMillis:      defaultSettleMillis,
		},
		Source: Source{
			HTTPTimeoutSeconds: defaultHTTPTimeoutSeconds,
			UserAgent:          defaultUserAgent,
		},
		Viewer: Viewer{
			Bind: defaultViewerBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
