// SPDX-License-Identifier: MIT

package jobs

import (
	"fmt"

	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/validate"
)

// validateConfig checks the settings a refresh reads and, unless dryRun, makes
// sure the data directory exists.
func validateConfig(cfg config.AppConfig, dryRun bool) error {
	if err := config.ValidateRefresh(cfg); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	v := validate.New()
	v.Directory("data_dir", cfg.DataDir, false)
	if !v.IsValid() {
		return fmt.Errorf("prepare data dir: %w", v.Err())
	}
	return nil
}
