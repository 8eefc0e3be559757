package macsource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setup(t *testing.T, list string) (*List, string) {
	t.Helper()
	dir := t.TempDir()
	listPath := filepath.Join(dir, "mac.txt")
	cursorPath := filepath.Join(dir, "mac_index.txt")
	if list != "" {
		if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return New(listPath, cursorPath), cursorPath
}

func readCursor(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cursor: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func TestNext_TwoEntriesNoCursor(t *testing.T) {
	l, cursor := setup(t, "AA:BB:CC:DD:EE:01\nAA:BB:CC:DD:EE:02\n")

	mac, err := l.Next()
	if err != nil {
		t.Fatal(err)
	}
	if mac != "AA:BB:CC:DD:EE:01" {
		t.Errorf("first = %q", mac)
	}
	if got := readCursor(t, cursor); got != "1" {
		t.Errorf("cursor = %q, want 1", got)
	}

	mac, err = l.Next()
	if err != nil {
		t.Fatal(err)
	}
	if mac != "AA:BB:CC:DD:EE:02" {
		t.Errorf("second = %q", mac)
	}
	if got := readCursor(t, cursor); got != "0" {
		t.Errorf("cursor = %q, want 0", got)
	}
}

func TestNext_IsCircular(t *testing.T) {
	entries := []string{"02:00:00:00:00:01", "02:00:00:00:00:02", "02:00:00:00:00:03"}
	l, _ := setup(t, strings.Join(entries, "\n"))

	for round := range 2 {
		for i, want := range entries {
			got, err := l.Next()
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("round %d entry %d = %q, want %q", round, i, got, want)
			}
		}
	}
}

func TestNext_CursorBeyondList(t *testing.T) {
	l, cursor := setup(t, "a\nb\nc\n")
	if err := os.WriteFile(cursor, []byte("7"), 0o644); err != nil {
		t.Fatal(err)
	}

	mac, err := l.Next()
	if err != nil {
		t.Fatal(err)
	}
	if mac != "b" {
		t.Errorf("mac = %q, want list[7 mod 3] = b", mac)
	}
	if got := readCursor(t, cursor); got != "2" {
		t.Errorf("cursor = %q, want 2", got)
	}
}

func TestNext_GarbageCursor(t *testing.T) {
	l, cursor := setup(t, "a\nb\n")
	if err := os.WriteFile(cursor, []byte("not a number"), 0o644); err != nil {
		t.Fatal(err)
	}
	mac, _ := l.Next()
	if mac != "a" {
		t.Errorf("mac = %q, want a", mac)
	}
}

func TestNext_MissingList(t *testing.T) {
	l, cursor := setup(t, "")
	mac, err := l.Next()
	if err != nil || mac != "" {
		t.Errorf("Next() = %q, %v; want empty, nil", mac, err)
	}
	if _, err := os.Stat(cursor); !os.IsNotExist(err) {
		t.Error("cursor should not be created for a missing list")
	}
}

func TestNext_BlankAndCommentLines(t *testing.T) {
	l, _ := setup(t, "\n  # spare adapters\n\n  AA:BB:CC:DD:EE:01  \n\n")
	mac, err := l.Next()
	if err != nil {
		t.Fatal(err)
	}
	if mac != "AA:BB:CC:DD:EE:01" {
		t.Errorf("mac = %q", mac)
	}
}

func TestNext_OnlyComments(t *testing.T) {
	l, _ := setup(t, "# nothing yet\n")
	mac, err := l.Next()
	if err != nil || mac != "" {
		t.Errorf("Next() = %q, %v; want empty, nil", mac, err)
	}
}
