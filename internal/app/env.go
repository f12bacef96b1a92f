package app

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

// LoadEnvFiles applies dotenv files to the process environment. Later files
// override earlier ones, but a variable the shell already set to a non-empty
// value is never replaced. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	merged := map[string]string{}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		f, err := os.Open(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		vars, err := parseDotenv(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	for k, v := range merged {
		if os.Getenv(k) != "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// parseDotenv reads KEY=VALUE lines. Blank lines, comments and lines without
// a key are ignored; an optional "export " prefix and one level of matching
// quotes are stripped. Values are not expanded.
func parseDotenv(r io.Reader) (map[string]string, error) {
	vars := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		val = strings.TrimSpace(val)
		if n := len(val); n >= 2 && (val[0] == '"' || val[0] == '\'') && val[n-1] == val[0] {
			val = val[1 : n-1]
		}
		vars[key] = val
	}
	return vars, scanner.Err()
}
