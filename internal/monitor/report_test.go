package monitor

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sznuper/linkguard/internal/speedtest"
)

func sampleReport() Report {
	return Report{
		Label:     LabelInitial,
		Timestamp: time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local),
		Interface: "eth0",
		MAC:       "AA:BB:CC:DD:EE:01",
		IP:        "192.168.1.50",
		PingOK:    true,
		Ookla:     speedtest.Result(ooklaOK),
		JS:        speedtest.Result(jsOK),
	}
}

// Scenario D.
func TestJSSummary_Success(t *testing.T) {
	r := sampleReport()
	if got := r.JSSummary(); got != "JS DL 55.40 UL 12.10" {
		t.Errorf("JSSummary = %q", got)
	}
}

func TestJSSummary_Incomplete(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing upload", `{"download_mbps": 55.4}`, "JS erro/dados incompletos"},
		{"string value", `{"download_mbps": "55.4", "upload_mbps": 12.1}`, "JS erro/dados incompletos"},
		{"error payload", `{"error":{"rc":2,"stderr":"timeout"}}`, "JS erro"},
		{"not an object", `[55.4, 12.1]`, "JS erro"},
	}
	for _, tt := range tests {
		r := sampleReport()
		r.JS = speedtest.Result(tt.doc)
		if got := r.JSSummary(); got != tt.want {
			t.Errorf("%s: JSSummary = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOoklaSummary(t *testing.T) {
	r := sampleReport()
	if got := r.OoklaSummary(); got != "Ookla DL 11.88 UL 2.50" {
		t.Errorf("OoklaSummary = %q", got)
	}
	r.Ookla = speedtest.ExitError(1, "Limit reached")
	if got := r.OoklaSummary(); got != "Ookla erro" {
		t.Errorf("OoklaSummary = %q", got)
	}
}

func TestLogResult_AllSegments(t *testing.T) {
	r := sampleReport()
	got := r.LogResult()
	want := "initial | Ping OK | Ookla DL 11.88 UL 2.50 | JS DL 55.40 UL 12.10"
	if got != want {
		t.Errorf("LogResult = %q, want %q", got, want)
	}
}

func TestLogResult_PingFailed(t *testing.T) {
	r := sampleReport()
	r.Label = LabelPostReset
	r.PingOK = false
	r.Ookla, r.JS = nil, nil
	if got := r.LogResult(); got != "post-reset | Ping falhou" {
		t.Errorf("LogResult = %q", got)
	}
}

func TestBody_Reachable(t *testing.T) {
	body := sampleReport().Body()
	for _, want := range []string{
		"📋 initial\n",
		"🕒 Momento: 2026-10-17 09:30:00\n",
		"📡 Interface: eth0\n",
		"🔔 MAC: AA:BB:CC:DD:EE:01\n",
		"🌐 IP: 192.168.1.50\n",
		"✅ Ping OK\n",
		"Servidor: sp1.example.net\n",
		"Ping: 11.20 ms\n",
		"Download (bandwidth): 11.88 Mbps\n",
		"Upload (bandwidth): 2.50 Mbps\n",
		"📈 Speedtest JS (resumo bruto JSON):\n",
		`"download_mbps": 55.4`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	order := []string{"📋", "🕒", "📡", "🔔", "🌐", "✅", "⚡", "📈"}
	last := -1
	for _, marker := range order {
		i := strings.Index(body, marker)
		if i < last {
			t.Errorf("%s out of order", marker)
		}
		last = i
	}
}

func TestBody_Unreachable(t *testing.T) {
	r := sampleReport()
	r.PingOK = false
	r.Ookla, r.JS = nil, nil
	body := r.Body()
	if !strings.HasSuffix(body, "\n❌ Sem conectividade (ping falhou).\n") {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "Ookla") || strings.Contains(body, "Speedtest JS") {
		t.Error("unreachable body must not mention speed tests")
	}
}

func TestBody_OoklaError(t *testing.T) {
	r := sampleReport()
	r.Ookla = speedtest.ExitError(1, "Limit reached")
	body := r.Body()
	if !strings.Contains(body, `Erro Ookla: {"rc":1,"stderr":"Limit reached"}`) {
		t.Errorf("body = %s", body)
	}
}

func TestBody_DumpIsBounded(t *testing.T) {
	r := sampleReport()
	r.JS = speedtest.Result(`{"samples":"` + strings.Repeat("é", 2*dumpLimit) + `"}`)
	body := r.Body()
	idx := strings.Index(body, "(resumo bruto JSON):\n")
	dump := strings.TrimSuffix(body[idx+len("(resumo bruto JSON):\n"):], "\n")
	if n := len([]rune(dump)); n != dumpLimit {
		t.Errorf("dump length = %d runes, want %d", n, dumpLimit)
	}
}

func TestDerivedText_Deterministic(t *testing.T) {
	r := sampleReport()
	body, line := r.Body(), r.LogResult()

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var restored Report
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatal(err)
	}
	if restored.Body() != body {
		t.Errorf("Body differs after reload:\n%s\n---\n%s", restored.Body(), body)
	}
	if restored.LogResult() != line {
		t.Errorf("LogResult differs after reload: %q vs %q", restored.LogResult(), line)
	}
}

func TestSummaryBody_Footer(t *testing.T) {
	r1 := sampleReport()
	r2 := sampleReport()
	r2.Label = LabelPostReset
	r2.Timestamp = r2.Timestamp.Add(3 * time.Minute)
	r2.PingOK = false

	body := SummaryBody([]Report{r1, r2})
	wantFooter := "🗒️ Entradas adicionadas ao log de conexão:\n" +
		"- 2026-10-17 09:30:00 | " + r1.LogResult() + "\n" +
		"- 2026-10-17 09:33:00 | post-reset | Ping falhou\n"
	if !strings.HasSuffix(body, wantFooter) {
		t.Errorf("footer mismatch:\n%s", body)
	}
	if !strings.HasPrefix(body, r1.Body()+"\n\n"+r2.Body()+"\n\n") {
		t.Error("bodies must be separated by a blank line, in order")
	}
}
