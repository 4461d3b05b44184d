// SPDX-License-Identifier: MIT

package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/history"
)

// Runs writes a table of refresh runs, newest first as given.
func Runs(w io.Writer, runs []history.Run) error {
	var sb strings.Builder
	if len(runs) == 0 {
		sb.WriteString("no refresh runs recorded\n")
	} else {
		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			outcome := r.Outcome
			if r.Stage != "" {
				outcome += " (" + r.Stage + ")"
			}
			rows = append(rows, []string{
				r.StartedAt.UTC().Format(time.DateTime),
				r.Duration().Round(time.Millisecond).String(),
				outcome,
				r.Strategy,
				strconv.Itoa(r.Points),
				strconv.Itoa(r.Programmes()),
			})
		}
		writeTable(&sb, []string{"Started (UTC)", "Took", "Outcome", "Strategy", "Points", "Programmes"}, rows)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
