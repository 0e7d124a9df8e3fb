package config

// Config is the process configuration assembled from the environment.
type Config struct {
	Port           string
	DatabaseURL    string
	LogLevel       string
	LogFile        string
	AllowedOrigins []string
	DispatcherFile string
	Cache          *CacheConfig
	Dispatcher     DispatcherConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "5050"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		DispatcherFile: getEnv("DISPATCHER_CONFIG", "dispatcher.toml"),
		Cache:          NewCacheConfig(),
	}

	dc, err := LoadDispatcherConfig(cfg.DispatcherFile)
	if err != nil {
		return nil, err
	}
	dc.ApplyEnv()
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	cfg.Dispatcher = dc
	return cfg, nil
}
