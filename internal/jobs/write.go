// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/tvsched/internal/epg"
	xglog "github.com/ManuGH/tvsched/internal/log"
)

// writeGuide publishes tv at path. The write is atomic, so a failure leaves
// the previous guide readable.
func writeGuide(ctx context.Context, path string, tv epg.TV) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create guide dir: %w", err)
	}
	if err := epg.WriteXMLTV(tv, path); err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "xmltv.failed").
			Str(xglog.FieldPath, path).
			Msg("XMLTV write failed")
		return err
	}

	logger.Info().
		Str(xglog.FieldEvent, "xmltv.success").
		Str(xglog.FieldPath, path).
		Int("channels", len(tv.Channels)).
		Int(xglog.FieldProgrammes, len(tv.Programs)).
		Msg("XMLTV written")
	return nil
}
