package runner

import (
	"time"

	"github.com/sznuper/linkguard/internal/monitor"
)

// Result captures the outcome of one monitoring cycle. Errors are stored in
// Err/ErrStage rather than returned, so the caller always has something to
// display.
type Result struct {
	RunID       string
	Status      string // "ok", "warning", "critical"
	Reports     []monitor.Report
	RelayErr    error             // soft failure of the reset pulse; the run still completes
	Attachments []string          // files present when the summary was built
	Rendered    map[string]string // service name → rendered message
	Notified    []string          // "email" and services notified (or would-notify)
	DryRun      bool
	Duration    time.Duration
	Err         error
	ErrStage    string // "template", "email", "notify"
}

// Status classifies a finished run: ok when every probe reached the target,
// warning when only the post-reset probe did, critical when the last probe
// failed.
func Status(reports []monitor.Report) string {
	if len(reports) == 0 {
		return "critical"
	}
	if !reports[len(reports)-1].PingOK {
		return "critical"
	}
	for _, r := range reports {
		if !r.PingOK {
			return "warning"
		}
	}
	return "ok"
}

func (r *Result) fail(stage string, err error) {
	if r.Err != nil {
		return
	}
	r.Err = err
	r.ErrStage = stage
}
