package runner

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sznuper/linkguard/internal/config"
	"github.com/sznuper/linkguard/internal/csvlog"
	"github.com/sznuper/linkguard/internal/macsource"
	"github.com/sznuper/linkguard/internal/monitor"
	"github.com/sznuper/linkguard/internal/network"
	"github.com/sznuper/linkguard/internal/notify"
	"github.com/sznuper/linkguard/internal/relay"
	"github.com/sznuper/linkguard/internal/speedtest"
)

// RunOptions adjust a single cycle.
type RunOptions struct {
	DryRun  bool // skip e-mail, validate services only
	NoRelay bool // never pulse the relay
}

// Runner builds collaborators from config and drives monitoring cycles.
// Cycles are serialized: at most one runs at a time.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	progress func(monitor.Phase, monitor.Label)
	deps     func(RunOptions) monitor.Deps
	now      func() time.Time

	mu    sync.Mutex
	relay *relay.GPIO
}

// New creates a Runner with the given config and logger. The config must
// have had defaults applied.
func New(cfg *config.Config, logger *slog.Logger) *Runner {
	r := &Runner{cfg: cfg, logger: logger, now: time.Now}
	r.deps = r.buildDeps
	return r
}

// WithProgress registers a callback receiving each phase as it starts.
func (r *Runner) WithProgress(fn func(monitor.Phase, monitor.Label)) *Runner {
	r.progress = fn
	return r
}

// WithDeps replaces collaborator construction.
func (r *Runner) WithDeps(fn func(RunOptions) monitor.Deps) *Runner {
	r.deps = fn
	return r
}

// RunOnce executes one monitoring cycle, e-mails the summary and fans a
// status message out to the configured services.
func (r *Runner) RunOnce(ctx context.Context, opts RunOptions) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := xid.New().String()
	log := r.logger.With("run", runID)
	start := time.Now()

	result := Result{RunID: runID, DryRun: opts.DryRun}

	subject, err := notify.Render(r.cfg.Email.Subject, notify.BuildTemplateData(
		r.cfg.Globals, map[string]string{"id": runID}, nil))
	if err != nil {
		log.Warn("rendering subject failed, using default", "error", err)
		subject = monitor.DefaultSubject
	}

	deps := r.deps(opts)
	mon := monitor.New(r.cfg.Options.Interface, deps, log).
		WithSubject(subject).
		WithClock(r.now).
		WithObserver(r.progress)

	log.Info("starting run", "interface", r.cfg.Options.Interface, "dry_run", opts.DryRun)
	result.Reports = mon.RunOnce(ctx, r.monitorOptions(opts))
	result.RelayErr = mon.RelayError()
	result.Status = Status(result.Reports)

	// Stage 1: e-mail summary with result files attached.
	attachments := r.cfg.Attachments()
	result.Attachments = present(attachments)
	switch {
	case deps.Notifier == nil:
		log.Debug("email not configured")
	case opts.DryRun:
		result.Notified = append(result.Notified, "email")
		log.Info("dry-run, skipping email", "attachments", len(result.Attachments))
	default:
		if err := mon.SendEmailSummary(ctx, result.Reports, attachments); err != nil {
			result.fail("email", err)
		} else {
			result.Notified = append(result.Notified, "email")
		}
	}

	// Stage 2: render and send service notifications.
	r.notifyServices(log, &result)

	result.Duration = time.Since(start)
	log.Info("run completed", "status", result.Status, "reports", len(result.Reports), "duration", result.Duration)
	return result
}

func (r *Runner) notifyServices(log *slog.Logger, result *Result) {
	if len(r.cfg.Notify) == 0 {
		return
	}

	tmplData := notify.BuildTemplateData(r.cfg.Globals, r.runFields(result), reportFields(result.Reports))
	targets, err := notify.ResolveTargets(mapNotifyRefs(r.cfg.Notify), mapServiceDefs(r.cfg.Services), r.cfg.Template, tmplData)
	if err != nil {
		result.fail("template", err)
		log.Error("template failed", "error", err)
		return
	}

	result.Rendered = make(map[string]string, len(targets))
	for _, t := range targets {
		result.Rendered[t.ServiceName] = t.Message
	}
	log.Debug("templates rendered", "targets", len(targets))

	for _, t := range targets {
		if result.DryRun {
			if err := notify.Validate(t); err != nil {
				result.fail("notify", err)
				log.Error("notify validation failed (dry-run)", "service", t.ServiceName, "error", err)
				return
			}
			result.Notified = append(result.Notified, t.ServiceName)
			log.Debug("would notify (dry-run)", "service", t.ServiceName, "message", t.Message)
			continue
		}

		log.Info("sending notification", "service", t.ServiceName)
		if err := notify.Send(t); err != nil {
			result.fail("notify", err)
			log.Error("notify failed", "service", t.ServiceName, "error", err)
			return
		}
		result.Notified = append(result.Notified, t.ServiceName)
		log.Debug("notification sent", "service", t.ServiceName)
	}
}

func (r *Runner) monitorOptions(opts RunOptions) monitor.Options {
	cfg := r.cfg
	return monitor.Options{
		PrimaryOutput:    cfg.Path(cfg.Files.PrimaryResult),
		SecondaryScript:  cfg.Path(cfg.Files.SecondaryScript),
		SecondaryResult:  cfg.Path(cfg.Files.SecondaryResult),
		UseRelay:         !cfg.Relay.Disabled && !opts.NoRelay,
		RelayDelay:       config.Duration(cfg.Relay.Pulse, 30*time.Second),
		RelayActiveLow:   cfg.Relay.ActiveLow,
		PostResetWaitMin: config.Duration(cfg.Relay.PostResetWait, monitor.MinPostResetWait),
	}
}

// buildDeps constructs the real collaborators. The GPIO pin is claimed once
// and reused by later cycles.
func (r *Runner) buildDeps(opts RunOptions) monitor.Deps {
	cfg := r.cfg

	adapter := network.New(network.Options{
		Interface:     cfg.Options.Interface,
		Target:        cfg.Probe.Target,
		PingCount:     cfg.Probe.Count,
		PingTimeout:   config.Duration(cfg.Probe.Timeout, network.DefaultPingTimeout),
		PollInterval:  config.Duration(cfg.Probe.PollInterval, 3*time.Second),
		SettleTimeout: config.Duration(cfg.Probe.SettleTimeout, network.DefaultSettleTimeout),
	}, r.logger)

	speed := speedtest.New(r.logger)
	speed.PrimaryCommand = cfg.Speedtest.PrimaryCommand
	speed.Node = cfg.Speedtest.Node
	speed.Timeout = config.Duration(cfg.Speedtest.Timeout, speed.Timeout)

	deps := monitor.Deps{
		Network: adapter,
		Speed:   speed,
		Log:     csvlog.New(cfg.Path(cfg.Files.Log)),
		MACs:    macsource.New(cfg.Path(cfg.Files.MACList), cfg.Path(cfg.Files.MACCursor)),
	}

	if !cfg.Relay.Disabled && !opts.NoRelay {
		if r.relay == nil {
			r.relay = relay.NewGPIO(cfg.Options.RelayPin, !cfg.Relay.ActiveLow)
			if err := r.relay.Ready(); err != nil {
				r.logger.Warn("relay unavailable, resets will fail", "relay", r.relay.Name(), "error", err)
			}
		}
		deps.Relay = r.relay
	}

	if cfg.Email.Enabled() {
		deps.Notifier = notify.NewMailer(notify.MailSettings{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			SSL:      cfg.Email.SSL,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
		}, r.logger)
	}

	return deps
}

func (r *Runner) runFields(result *Result) map[string]string {
	fields := map[string]string{
		"id":        result.RunID,
		"status":    result.Status,
		"reports":   strconv.Itoa(len(result.Reports)),
		"interface": r.cfg.Options.Interface,
		"mac":       monitor.NotAvailable,
	}
	if len(result.Reports) > 0 {
		fields["mac"] = result.Reports[0].MAC
	}
	return fields
}

func reportFields(reports []monitor.Report) []map[string]string {
	out := make([]map[string]string, len(reports))
	for i, rep := range reports {
		out[i] = map[string]string{
			"label":     string(rep.Label),
			"timestamp": rep.Stamp(),
			"mac":       rep.MAC,
			"ip":        rep.IP,
			"ping":      rep.PingLine(),
			"result":    rep.LogResult(),
		}
	}
	return out
}

func present(paths []string) []string {
	var out []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

func mapNotifyRefs(targets []config.NotifyTarget) []notify.NotifyRef {
	refs := make([]notify.NotifyRef, len(targets))
	for i, t := range targets {
		refs[i] = notify.NotifyRef{
			ServiceName: t.Service,
			Template:    t.Template,
			Params:      t.Params,
		}
	}
	return refs
}

func mapServiceDefs(services map[string]config.Service) map[string]notify.ServiceDef {
	defs := make(map[string]notify.ServiceDef, len(services))
	for name, svc := range services {
		defs[name] = notify.ServiceDef{
			URL:    svc.URL,
			Params: svc.Params,
		}
	}
	return defs
}
