package request

import (
	"bufio"
	"encoding/base64"
	"io"
	"os"
	"strings"

	"github.com/imdario/mergo"

	"rbkoracle/internal/errs"
)

// Param is one advanced recovery configuration entry.
type Param struct {
	Key   string
	Value string
}

// ACO is an ordered advanced recovery configuration (one KEY=value per line).
type ACO []Param

// ParseACO reads KEY=value lines. Comment lines starting with '#' and blank
// lines are skipped, quotes are removed and each line splits on its first '='.
func ParseACO(r io.Reader) (ACO, error) {
	var aco ACO
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = stripQuotes(line)
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errs.Validation("ACO line %d is not KEY=value: %q", lineNo, line)
		}
		aco = append(aco, Param{Key: key, Value: strings.TrimSpace(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Validation("read ACO file: %v", err)
	}
	return aco, nil
}

// LoadACO parses the ACO file at path.
func LoadACO(path string) (ACO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Validation("open ACO file %s: %v", path, err)
	}
	defer f.Close()
	return ParseACO(f)
}

// Get returns the value of key, compared case-insensitively.
func (a ACO) Get(key string) (string, bool) {
	for _, p := range a {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether every key is present.
func (a ACO) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := a.Get(k); !ok {
			return false
		}
	}
	return true
}

// Map returns the entries as a map. Later duplicates win.
func (a ACO) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, p := range a {
		m[p.Key] = p.Value
	}
	return m
}

// Base64 encodes the normalized KEY=value lines.
func (a ACO) Base64() string {
	var b strings.Builder
	for _, p := range a {
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
		b.WriteByte('\n')
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

// WithOracleHome returns the configuration with ORACLE_HOME set to home,
// replacing any value it already carried. An empty home leaves a unchanged.
func (a ACO) WithOracleHome(home string) (map[string]string, error) {
	m := a.Map()
	if home == "" {
		return m, nil
	}
	for k := range m {
		if strings.EqualFold(k, oracleHomeKey) && k != oracleHomeKey {
			delete(m, k)
		}
	}
	if err := mergo.Merge(&m, map[string]string{oracleHomeKey: home}, mergo.WithOverride); err != nil {
		return nil, errs.Validation("merge ORACLE_HOME into ACO: %v", err)
	}
	return m, nil
}

const oracleHomeKey = "ORACLE_HOME"

// pfileCompatible reports whether key may accompany a custom pfile.
func pfileCompatible(key string) bool {
	k := strings.ToUpper(key)
	switch {
	case k == oracleHomeKey, k == "SPFILE_LOCATION":
		return true
	case strings.HasPrefix(k, "DB_CREATE_ONLINE_LOG_DEST_") && len(k) == len("DB_CREATE_ONLINE_LOG_DEST_")+1:
		return true
	}
	return false
}

// SanitizePath removes single and double quotes from a filesystem path.
func SanitizePath(p string) string {
	return strings.TrimSpace(stripQuotes(p))
}

func stripQuotes(s string) string {
	return strings.NewReplacer("'", "", `"`, "").Replace(s)
}
