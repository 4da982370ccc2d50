package config

import "time"

// DefaultQueueCapacity bounds the number of sales awaiting upload.
const DefaultQueueCapacity = 50

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir: DefaultBaseDir(),

		API: APIConfig{
			Timeout:   30 * time.Second,
			RateLimit: 60,
		},

		Register: RegisterConfig{
			Number:        1,
			QueueCapacity: DefaultQueueCapacity,
		},
	}
}
