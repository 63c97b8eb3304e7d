package wizconfig

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadEnvFile parses a plain KEY=VALUE file, one entry per line, no
// interpolation, no quoting rules beyond trimming surrounding whitespace.
// Blank lines and lines starting with '#' are ignored. A missing file
// yields an empty map, not an error — the admin-secret contract treats
// "no env file yet" as the starting point for repair, not a fault.
func ReadEnvFile(path string) (map[string]string, error) {
	entries := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("open env file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		entries[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan env file %s: %w", path, err)
	}
	return entries, nil
}

// WriteEnvFile persists entries as sorted KEY=VALUE lines, so repeated
// repair runs produce a stable diff.
func WriteEnvFile(path string, entries map[string]string) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, entries[k])
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write env file %s: %w", path, err)
	}
	return nil
}

// EnvLookup adapts ReadEnvFile's map onto the provider package's
// EnvLookup(name) (string, bool) contract, with an OS-environment
// fallback so a process env var can always override the file.
func EnvLookup(entries map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
		v, ok := entries[name]
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}
}
