package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// TemplateData holds all data available to notification templates.
type TemplateData struct {
	Globals map[string]any
	Run     map[string]string
	Reports []map[string]string
}

// BuildTemplateData constructs template data from a finished run. runFields
// must carry "status"; "status_emoji" is derived from it.
func BuildTemplateData(globals map[string]any, runFields map[string]string, reports []map[string]string) TemplateData {
	if globals == nil {
		globals = map[string]any{}
	}

	run := make(map[string]string, len(runFields)+1)
	for k, v := range runFields {
		run[k] = v
	}
	run["status_emoji"] = statusEmoji(run["status"])

	if reports == nil {
		reports = []map[string]string{}
	}

	return TemplateData{
		Globals: globals,
		Run:     run,
		Reports: reports,
	}
}

func statusEmoji(status string) string {
	switch status {
	case "critical":
		return "\U0001f534" // 🔴
	case "warning":
		return "\U0001f7e1" // 🟡
	case "ok":
		return "\U0001f7e2" // 🟢
	default:
		return "\u2753" // ❓
	}
}

// Render executes a Go text/template string with Sprig functions and the
// accessor functions globals, run and reports.
func Render(tmplStr string, data TemplateData) (string, error) {
	funcMap := sprig.TxtFuncMap()

	// {{run.status}} calls "run" and indexes the returned map.
	funcMap["globals"] = func() map[string]any { return data.Globals }
	funcMap["run"] = func() map[string]string { return data.Run }
	funcMap["reports"] = func() []map[string]string { return data.Reports }

	t, err := template.New("notify").Funcs(funcMap).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
