package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sznuper/linkguard/internal/speedtest"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "Relatório de Teste de Conexão (Raspberry)"

// MinPostResetWait is the floor for the connectivity wait after a relay pulse.
const MinPostResetWait = 90 * time.Second

// Network controls and probes the monitored interface.
type Network interface {
	ApplyMAC(ctx context.Context, mac string) error
	WaitConnectivity(ctx context.Context, timeout time.Duration) bool
	PingOK(ctx context.Context) bool
	IP() (string, bool)
}

// SpeedTester runs the two speed-test mechanisms. Failures come back as error
// payloads inside the Result.
type SpeedTester interface {
	RunPrimary(ctx context.Context, outputPath string) speedtest.Result
	RunSecondary(ctx context.Context, scriptPath, resultPath string) speedtest.Result
}

// Relay power-cycles the modem. Pulse blocks for the whole pulse.
type Relay interface {
	Pulse(d time.Duration, activeHigh bool) error
}

// Notifier delivers the run summary. Attachment paths that do not exist are
// skipped by the implementation.
type Notifier interface {
	Send(ctx context.Context, subject, body string, attachments []string) error
}

// RunLog appends one row per report.
type RunLog interface {
	Append(timestamp, mac, ip, result string) error
}

// MACSource yields the next address of a circular rotation, or "" when there
// is nothing to rotate.
type MACSource interface {
	Next() (string, error)
}

// Deps are the collaborators a Monitor drives. Relay, Notifier and MACs may
// be nil.
type Deps struct {
	Network  Network
	Speed    SpeedTester
	Relay    Relay
	Notifier Notifier
	Log      RunLog
	MACs     MACSource
}

// Options configures a single run.
type Options struct {
	PrimaryOutput    string
	SecondaryScript  string
	SecondaryResult  string
	UseRelay         bool
	RelayDelay       time.Duration
	RelayActiveLow   bool
	PostResetWaitMin time.Duration
}

// ResetWait is how long to wait for connectivity after a relay pulse: the
// longer of the pulse and the post-reset minimum, never below 90s.
func (o Options) ResetWait() time.Duration {
	return max(o.RelayDelay, o.PostResetWaitMin, MinPostResetWait)
}

// Phase identifies a step of a run, reported to the observer.
type Phase string

const (
	PhaseMAC       Phase = "rotating mac"
	PhaseProbe     Phase = "probing"
	PhaseOokla     Phase = "running ookla speed test"
	PhaseJS        Phase = "running js speed test"
	PhaseRelay     Phase = "pulsing relay"
	PhaseReconnect Phase = "waiting for connectivity"
	PhaseNotify    Phase = "sending summary"
)

// Monitor runs monitoring cycles against injected collaborators.
type Monitor struct {
	iface   string
	deps    Deps
	subject string
	logger  *slog.Logger
	now     func() time.Time
	observe func(Phase, Label)

	relayErr error
}

// New creates a Monitor for iface.
func New(iface string, deps Deps, logger *slog.Logger) *Monitor {
	return &Monitor{
		iface:   iface,
		deps:    deps,
		subject: DefaultSubject,
		logger:  logger,
		now:     time.Now,
		observe: func(Phase, Label) {},
	}
}

// WithSubject sets the e-mail subject.
func (m *Monitor) WithSubject(subject string) *Monitor {
	if subject != "" {
		m.subject = subject
	}
	return m
}

// WithClock replaces the wall clock used to stamp reports.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// WithObserver registers a callback invoked as each phase starts.
func (m *Monitor) WithObserver(fn func(Phase, Label)) *Monitor {
	if fn != nil {
		m.observe = fn
	}
	return m
}

// RunOnce executes one cycle: MAC rotation, initial probe and, when the relay
// is enabled, a reset followed by a second probe. No collaborator failure
// aborts the run; the returned slice holds one or two reports in order.
func (m *Monitor) RunOnce(ctx context.Context, opts Options) []Report {
	m.relayErr = nil
	mac := m.rotateMAC(ctx)

	reports := []Report{m.probe(ctx, LabelInitial, mac, opts)}

	if !opts.UseRelay || m.deps.Relay == nil {
		return reports
	}

	m.observe(PhaseRelay, LabelInitial)
	m.logger.Info("resetting modem via relay", "pulse", opts.RelayDelay)
	if err := m.pulse(opts.RelayDelay, !opts.RelayActiveLow); err != nil {
		m.relayErr = err
		m.logger.Warn("relay pulse failed", "error", err)
	} else {
		m.logger.Info("relay cycle completed")
	}

	wait := opts.ResetWait()
	m.observe(PhaseReconnect, LabelPostReset)
	m.logger.Info("waiting for connectivity after reset", "timeout", wait)
	if m.deps.Network.WaitConnectivity(ctx, wait) {
		m.logger.Info("connectivity restored after reset")
	} else {
		m.logger.Warn("connectivity did not return within timeout after reset", "timeout", wait)
	}

	return append(reports, m.probe(ctx, LabelPostReset, mac, opts))
}

// RelayError returns the soft failure of the last RunOnce relay pulse, if any.
func (m *Monitor) RelayError() error { return m.relayErr }

// SendEmailSummary delivers every report body plus a footer of the log
// entries written during the run. Send failures are logged and returned; they
// never alter the reports.
func (m *Monitor) SendEmailSummary(ctx context.Context, reports []Report, attachments []string) error {
	if m.deps.Notifier == nil {
		m.logger.Debug("no notifier configured, skipping summary")
		return nil
	}
	m.observe(PhaseNotify, "")

	body := SummaryBody(reports)
	if err := m.deps.Notifier.Send(ctx, m.subject, body, attachments); err != nil {
		m.logger.Error("sending summary failed", "error", err)
		return fmt.Errorf("sending summary: %w", err)
	}
	m.logger.Info("summary sent", "reports", len(reports), "attachments", len(attachments))
	return nil
}

// SummaryBody renders the e-mail body for a completed run.
func SummaryBody(reports []Report) string {
	var b strings.Builder
	for _, r := range reports {
		b.WriteString(r.Body())
		b.WriteString("\n\n")
	}
	b.WriteString("🗒️ Entradas adicionadas ao log de conexão:\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "- %s%s%s\n", r.Stamp(), logSeparator, r.LogResult())
	}
	return b.String()
}

func (m *Monitor) rotateMAC(ctx context.Context) string {
	if m.deps.MACs == nil {
		m.logger.Warn("no mac source configured, skipping mac rotation")
		return ""
	}
	mac, err := m.deps.MACs.Next()
	if err != nil {
		m.logger.Warn("reading mac rotation", "error", err)
	}
	if mac == "" {
		m.logger.Warn("mac list missing or empty, skipping mac rotation")
		return ""
	}

	m.observe(PhaseMAC, "")
	if err := m.deps.Network.ApplyMAC(ctx, mac); err != nil {
		m.logger.Warn("failed to apply mac", "mac", mac, "error", err)
	} else {
		m.logger.Info("mac applied", "mac", mac, "interface", m.iface)
	}
	return mac
}

// probe builds one report and appends it to the run log before returning it.
func (m *Monitor) probe(ctx context.Context, label Label, mac string, opts Options) Report {
	log := m.logger.With("label", label)

	r := Report{
		Label:     label,
		Timestamp: m.now(),
		Interface: m.iface,
		MAC:       NotAvailable,
		IP:        NotAvailable,
	}
	if mac != "" {
		r.MAC = mac
	}
	if ip, ok := m.deps.Network.IP(); ok && ip != "" {
		r.IP = ip
	}

	m.observe(PhaseProbe, label)
	log.Info("probing reachability")
	r.PingOK = m.deps.Network.PingOK(ctx)

	if r.PingOK {
		log.Info("ping ok")
		m.observe(PhaseOokla, label)
		r.Ookla = m.deps.Speed.RunPrimary(ctx, opts.PrimaryOutput)
		m.observe(PhaseJS, label)
		r.JS = m.deps.Speed.RunSecondary(ctx, opts.SecondaryScript, opts.SecondaryResult)
	} else {
		log.Warn("no connectivity, ping failed")
	}

	result := r.LogResult()
	if m.deps.Log != nil {
		if err := m.deps.Log.Append(r.Stamp(), r.MAC, r.IP, result); err != nil {
			log.Error("appending to run log", "error", err)
		}
	}
	log.Info("probe finished", "result", result)
	return r
}

// pulse converts both errors and panics from the relay into an error.
func (m *Monitor) pulse(d time.Duration, activeHigh bool) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("relay panicked: %v", p)
		}
	}()
	return m.deps.Relay.Pulse(d, activeHigh)
}
