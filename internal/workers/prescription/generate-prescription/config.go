// internal/workers/prescription/generate-prescription/config.go
package generateprescription

import (
	"time"

	"clinqo-prescriber/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig sizes the job timeout to cover one inference call plus margin.
func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(cfg.Inference.Timeout) + 5*time.Second
	if w := config.GetWorkerConfig(cfg, TaskType); config.GetDuration(w.Timeout) > timeout {
		timeout = config.GetDuration(w.Timeout)
	}
	return &Config{Timeout: timeout}
}
