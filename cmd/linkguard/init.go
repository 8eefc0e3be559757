package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const exampleConfig = `options:
  interface: eth0
  relay_pin: GPIO17
  log_level: info

files:
  mac_list: mac.txt
  mac_cursor: mac_index.txt
  log: connection_log.csv
  primary_result: ookla_result.json
  secondary_script: test.js
  secondary_result: result.json
  attachments:
    - results.csv

relay:
  pulse: 30s
  post_reset_wait: 90s

trigger:
  interval: 3h

email:
  host: ${SMTP_SERVER}
  port: ${SMTP_PORT}
  username: ${EMAIL_USER}
  password: ${EMAIL_PASS}
  to: ${EMAIL_TO}
`

const exampleEnv = `EMAIL_USER=
EMAIL_PASS=
EMAIL_TO=
SMTP_SERVER=smtp.gmail.com
SMTP_PORT=587
`

const exampleMACs = `# One MAC address per line. Lines starting with # are ignored.
`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write an example configuration",
	Long:  "Creates config.yaml, a .env template and an empty mac.txt in dir (default: current directory). Existing files are left untouched.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}

		files := []struct {
			name    string
			content string
			perm    os.FileMode
		}{
			{"config.yaml", exampleConfig, 0o644},
			{".env", exampleEnv, 0o600},
			{"mac.txt", exampleMACs, 0o644},
		}
		for _, f := range files {
			path := filepath.Join(dir, f.name)
			created, err := writeNew(path, f.content, f.perm)
			if err != nil {
				return err
			}
			if created {
				fmt.Println(okStyle.Render("created ") + path)
			} else {
				fmt.Println(dimStyle.Render("exists  ") + path)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// writeNew creates path with content unless it already exists.
func writeNew(path, content string, perm os.FileMode) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, f.Close()
}
