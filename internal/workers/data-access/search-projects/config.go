// internal/workers/data-access/search-projects/config.go
package searchprojects

import "time"

type Config struct {
	Timeout      time.Duration
	DefaultIndex string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		DefaultIndex: "projects",
	}
}
