package request

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rbkoracle/internal/errs"
)

func TestParseACO(t *testing.T) {
	input := `# clone parameters
DB_FILE_NAME_CONVERT='/u01/ORCL','/u02/CLN'

ORACLE_HOME="/u01/app/oracle/product/19c"
LOG_ARCHIVE_FORMAT=arch_%t_%s_%r.arc=x
`
	aco, err := ParseACO(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseACO() error = %v", err)
	}
	want := ACO{
		{Key: "DB_FILE_NAME_CONVERT", Value: "/u01/ORCL,/u02/CLN"},
		{Key: "ORACLE_HOME", Value: "/u01/app/oracle/product/19c"},
		{Key: "LOG_ARCHIVE_FORMAT", Value: "arch_%t_%s_%r.arc=x"},
	}
	if diff := cmp.Diff(want, aco); diff != "" {
		t.Errorf("ParseACO() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseACORejectsBareLine(t *testing.T) {
	_, err := ParseACO(strings.NewReader("ORACLE_HOME\n"))
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadACO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aco.conf")
	if err := os.WriteFile(path, []byte("SPFILE_LOCATION=/tmp/spfile.ora\n"), 0600); err != nil {
		t.Fatal(err)
	}
	aco, err := LoadACO(path)
	if err != nil {
		t.Fatalf("LoadACO() error = %v", err)
	}
	if v, ok := aco.Get("spfile_location"); !ok || v != "/tmp/spfile.ora" {
		t.Errorf("Get() = %q, %v", v, ok)
	}

	if _, err := LoadACO(filepath.Join(t.TempDir(), "missing")); !errs.Is(err, errs.KindValidation) {
		t.Errorf("missing file error = %v, want ValidationError", err)
	}
}

func TestWithOracleHomeOverrides(t *testing.T) {
	aco := ACO{{Key: "oracle_home", Value: "/old"}, {Key: "SPFILE_LOCATION", Value: "/sp"}}
	m, err := aco.WithOracleHome("/new")
	if err != nil {
		t.Fatalf("WithOracleHome() error = %v", err)
	}
	want := map[string]string{"ORACLE_HOME": "/new", "SPFILE_LOCATION": "/sp"}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("WithOracleHome() mismatch (-want +got):\n%s", diff)
	}

	m, _ = ACO(nil).WithOracleHome("/home")
	if m["ORACLE_HOME"] != "/home" {
		t.Errorf("WithOracleHome() on empty ACO = %v", m)
	}

	m, _ = aco.WithOracleHome("")
	if m["oracle_home"] != "/old" {
		t.Errorf("empty home changed the map: %v", m)
	}
}

func TestBase64(t *testing.T) {
	aco := ACO{{Key: "A", Value: "1"}, {Key: "B", Value: "x=y"}}
	raw, err := base64.StdEncoding.DecodeString(aco.Base64())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "A=1\nB=x=y\n" {
		t.Errorf("decoded = %q", raw)
	}
}

func TestPfileCompatible(t *testing.T) {
	tests := map[string]bool{
		"ORACLE_HOME":                 true,
		"spfile_location":             true,
		"DB_CREATE_ONLINE_LOG_DEST_1":  true,
		"db_create_online_log_dest_5":  true,
		"DB_CREATE_ONLINE_LOG_DEST_":   false,
		"DB_CREATE_ONLINE_LOG_DEST_10": false,
		"DB_FILE_NAME_CONVERT":         false,
	}
	for key, want := range tests {
		if got := pfileCompatible(key); got != want {
			t.Errorf("pfileCompatible(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	if got := SanitizePath(` '/u01/mnt/"x"' `); got != "/u01/mnt/x" {
		t.Errorf("SanitizePath() = %q", got)
	}
}
