package monitor

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sznuper/linkguard/internal/speedtest"
)

type fakeNetwork struct {
	ping       []bool // successive PingOK answers; the last one repeats
	pingCalls  int
	applied    []string
	applyErr   error
	waits      []time.Duration
	waitResult bool
	ip         string
	events     *[]string
}

func (n *fakeNetwork) ApplyMAC(_ context.Context, mac string) error {
	n.applied = append(n.applied, mac)
	n.record("apply " + mac)
	return n.applyErr
}

func (n *fakeNetwork) WaitConnectivity(_ context.Context, timeout time.Duration) bool {
	n.waits = append(n.waits, timeout)
	n.record("wait")
	return n.waitResult
}

func (n *fakeNetwork) PingOK(context.Context) bool {
	n.record("ping")
	if len(n.ping) == 0 {
		return false
	}
	i := min(n.pingCalls, len(n.ping)-1)
	n.pingCalls++
	return n.ping[i]
}

func (n *fakeNetwork) IP() (string, bool) {
	return n.ip, n.ip != ""
}

func (n *fakeNetwork) record(e string) {
	if n.events != nil {
		*n.events = append(*n.events, e)
	}
}

type fakeSpeed struct {
	primary   speedtest.Result
	secondary speedtest.Result
	calls     []string
}

func (s *fakeSpeed) RunPrimary(_ context.Context, outputPath string) speedtest.Result {
	s.calls = append(s.calls, "primary "+outputPath)
	return s.primary
}

func (s *fakeSpeed) RunSecondary(_ context.Context, scriptPath, resultPath string) speedtest.Result {
	s.calls = append(s.calls, "secondary "+scriptPath+" "+resultPath)
	return s.secondary
}

type fakeRelay struct {
	err    error
	panics bool
	pulses []time.Duration
	events *[]string
}

func (r *fakeRelay) Pulse(d time.Duration, activeHigh bool) error {
	r.pulses = append(r.pulses, d)
	if r.events != nil {
		*r.events = append(*r.events, "pulse")
	}
	if r.panics {
		panic("gpio: device not ready")
	}
	return r.err
}

type logRow struct{ timestamp, mac, ip, result string }

type fakeLog struct{ rows []logRow }

func (l *fakeLog) Append(timestamp, mac, ip, result string) error {
	l.rows = append(l.rows, logRow{timestamp, mac, ip, result})
	return nil
}

type fakeMACs struct {
	list []string
	idx  int
}

func (m *fakeMACs) Next() (string, error) {
	if len(m.list) == 0 {
		return "", nil
	}
	mac := m.list[m.idx%len(m.list)]
	m.idx = (m.idx + 1) % len(m.list)
	return mac, nil
}

type sentMail struct {
	subject     string
	body        string
	attachments []string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, subject, body string, attachments []string) error {
	n.sent = append(n.sent, sentMail{subject, body, attachments})
	return n.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local)
	return func() time.Time {
		cur := t
		t = t.Add(time.Minute)
		return cur
	}
}

const (
	ooklaOK = `{"ping":{"latency":11.2},"download":{"bandwidth":11875000},"upload":{"bandwidth":2500000},"server":{"host":"sp1.example.net"}}`
	jsOK    = `{"download_mbps": 55.4, "upload_mbps": 12.1}`
)
