// internal/workers/prescription/submit-prescription/config.go
package submitprescription

import (
	"time"

	"clinqo-prescriber/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	timeout := 10 * time.Second
	if w, ok := cfg.Workers[TaskType]; ok && w.Timeout > 0 {
		timeout = config.GetDuration(w.Timeout)
	}
	return &Config{Timeout: timeout}
}
