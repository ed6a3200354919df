// internal/workers/feedback/rank-projects/config.go
package rankprojects

import (
	"time"

	"civicmatch-workers/internal/ranking"
)

type Config struct {
	Timeout       time.Duration
	OracleTimeout time.Duration
	Concurrency   int
	// Recorder forwards per-call oracle outcomes to the metrics pipeline.
	Recorder ranking.CallRecorder
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		OracleTimeout: 10 * time.Second,
		Concurrency:   1,
	}
}
