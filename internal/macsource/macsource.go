package macsource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// List rotates through MAC addresses read from a text file, persisting the
// position in a cursor file. Only one process may use a cursor file at a time.
type List struct {
	listPath   string
	cursorPath string
}

// New returns a rotation over listPath with its cursor stored at cursorPath.
func New(listPath, cursorPath string) *List {
	return &List{listPath: listPath, cursorPath: cursorPath}
}

// Next returns the entry at the persisted cursor and advances the cursor
// circularly. It returns "" with a nil error when the list file is missing or
// has no entries.
func (l *List) Next() (string, error) {
	macs, err := l.Entries()
	if err != nil {
		return "", err
	}
	if len(macs) == 0 {
		return "", nil
	}

	idx := l.cursor() % len(macs)
	if err := l.persist((idx + 1) % len(macs)); err != nil {
		return macs[idx], fmt.Errorf("persisting mac cursor: %w", err)
	}
	return macs[idx], nil
}

// Entries returns the non-empty, non-comment lines of the list file.
func (l *List) Entries() ([]string, error) {
	data, err := os.ReadFile(l.listPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mac list: %w", err)
	}

	var macs []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		macs = append(macs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning mac list: %w", err)
	}
	return macs, nil
}

// cursor reads the persisted index; a missing or unreadable cursor is 0.
func (l *List) cursor() int {
	data, err := os.ReadFile(l.cursorPath)
	if err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (l *List) persist(idx int) error {
	if err := os.MkdirAll(filepath.Dir(l.cursorPath), 0o755); err != nil {
		return err
	}
	tmpPath := fmt.Sprintf("%s.%d.tmp", l.cursorPath, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, []byte(strconv.Itoa(idx)), 0o644); err != nil {
		return fmt.Errorf("write temp cursor: %w", err)
	}
	if err := os.Rename(tmpPath, l.cursorPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace cursor file: %w", err)
	}
	return nil
}
