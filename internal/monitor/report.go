package monitor

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sznuper/linkguard/internal/speedtest"
)

// Label names the phase that produced a Report.
type Label string

const (
	LabelInitial   Label = "initial"
	LabelPostReset Label = "post-reset"
)

// NotAvailable stands in for a MAC or IP that could not be determined.
const NotAvailable = "N/D"

// TimeLayout is the local wall-clock format used in reports and the log.
const TimeLayout = "2006-01-02 15:04:05"

// dumpLimit bounds the raw secondary result embedded in a report body.
const dumpLimit = 6000

const logSeparator = " | "

// Report is one probe snapshot. Body and LogResult are derived from the
// other fields and always render the same text for the same Report.
type Report struct {
	Label     Label            `json:"label"`
	Timestamp time.Time        `json:"timestamp"`
	Interface string           `json:"interface"`
	MAC       string           `json:"mac"`
	IP        string           `json:"ip"`
	PingOK    bool             `json:"ping_ok"`
	Ookla     speedtest.Result `json:"ookla,omitempty"`
	JS        speedtest.Result `json:"js,omitempty"`
}

// Stamp formats the report time.
func (r Report) Stamp() string {
	return r.Timestamp.Format(TimeLayout)
}

// PingLine is the reachability segment of the log line.
func (r Report) PingLine() string {
	if r.PingOK {
		return "Ping OK"
	}
	return "Ping falhou"
}

// OoklaSummary condenses the primary result for the log line.
func (r Report) OoklaSummary() string {
	if r.Ookla.Failed() {
		return "Ookla erro"
	}
	dl := r.Ookla.Get("download.bandwidth").Float() / 1e6
	ul := r.Ookla.Get("upload.bandwidth").Float() / 1e6
	return fmt.Sprintf("Ookla DL %.2f UL %.2f", dl, ul)
}

// JSSummary condenses the secondary result for the log line. Both
// download_mbps and upload_mbps must be numbers.
func (r Report) JSSummary() string {
	if r.JS.Failed() {
		return "JS erro"
	}
	dl, okDL := r.JS.Number("download_mbps")
	ul, okUL := r.JS.Number("upload_mbps")
	if !okDL || !okUL {
		return "JS erro/dados incompletos"
	}
	return fmt.Sprintf("JS DL %.2f UL %.2f", dl, ul)
}

// LogResult is the single-line summary written to the connection log.
func (r Report) LogResult() string {
	parts := []string{string(r.Label), r.PingLine()}
	if r.PingOK {
		parts = append(parts, r.OoklaSummary(), r.JSSummary())
	}
	return strings.Join(parts, logSeparator)
}

// Body renders the human-readable block used in the e-mail summary.
func (r Report) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s\n", r.Label)
	fmt.Fprintf(&b, "🕒 Momento: %s\n", r.Stamp())
	fmt.Fprintf(&b, "📡 Interface: %s\n", r.Interface)
	fmt.Fprintf(&b, "🔔 MAC: %s\n", r.MAC)
	fmt.Fprintf(&b, "🌐 IP: %s\n", r.IP)

	if !r.PingOK {
		b.WriteString("\n❌ Sem conectividade (ping falhou).\n")
		return b.String()
	}

	b.WriteString("✅ Ping OK\n")
	b.WriteString("\n⚡ Ookla CLI:\n")
	b.WriteString(ooklaBlock(r.Ookla))
	b.WriteString("\n")
	b.WriteString("\n📈 Speedtest JS (resumo bruto JSON):\n")
	b.WriteString(truncate(r.JS.Pretty(), dumpLimit))
	b.WriteString("\n")
	return b.String()
}

func ooklaBlock(res speedtest.Result) string {
	if res.Failed() {
		if e := res.Get("error"); e.Exists() {
			return "Erro Ookla: " + e.Raw
		}
		return "Erro Ookla"
	}
	return fmt.Sprintf("Download (bandwidth): %.2f Mbps\nUpload (bandwidth): %.2f Mbps\nServidor: %s\nPing: %.2f ms",
		res.Get("download.bandwidth").Float()/1e6,
		res.Get("upload.bandwidth").Float()/1e6,
		res.Get("server.host").String(),
		res.Get("ping.latency").Float(),
	)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
