package speedtest

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// rawLimit bounds the unparsed output kept in a parse-error payload.
const rawLimit = 4000

// Result is the JSON document produced by a speed-test mechanism. On failure it
// holds an error payload instead: {"error":{"rc":N,"stderr":"..."}} when the
// tool exits non-zero, {"error":{"parseError":"...","raw":"..."}} when its
// output cannot be decoded.
type Result []byte

// ExitError builds the payload for a tool that exited with a non-zero code.
func ExitError(rc int, stderr string) Result {
	return mustMarshal(map[string]any{
		"error": map[string]any{"rc": rc, "stderr": stderr},
	})
}

// ParseError builds the payload for output that could not be decoded.
func ParseError(err error, raw string) Result {
	return mustMarshal(map[string]any{
		"error": map[string]any{"parseError": err.Error(), "raw": truncate(raw, rawLimit)},
	})
}

// Empty reports whether no test was run.
func (r Result) Empty() bool { return len(r) == 0 }

// Failed reports whether r is an error payload or not a JSON object at all.
func (r Result) Failed() bool {
	if !gjson.ValidBytes(r) {
		return true
	}
	doc := gjson.ParseBytes(r)
	return !doc.IsObject() || doc.Get("error").Exists()
}

// Get queries r with a gjson path.
func (r Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r, path)
}

// Number returns the value at path and whether it is a JSON number.
func (r Result) Number(path string) (float64, bool) {
	v := r.Get(path)
	if v.Type != gjson.Number {
		return 0, false
	}
	return v.Float(), true
}

// Pretty renders r indented, or "null" when no test was run.
func (r Result) Pretty() string {
	if r.Empty() {
		return "null"
	}
	if !gjson.ValidBytes(r) {
		return string(r)
	}
	return string(pretty.Pretty(r))
}

// MarshalJSON embeds the document verbatim.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Empty() {
		return []byte("null"), nil
	}
	if !gjson.ValidBytes(r) {
		return json.Marshal(string(r))
	}
	return []byte(r), nil
}

// UnmarshalJSON stores the raw document.
func (r *Result) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], data...)
	return nil
}

func mustMarshal(v any) Result {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("speedtest: encoding error payload: %v", err))
	}
	return b
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
