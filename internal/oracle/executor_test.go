package oracle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
)

type call struct {
	env   []string
	stdin string
	name  string
	args  []string
}

// fakeRunner answers each call with the output of the first rule whose key
// appears in the script.
type fakeRunner struct {
	calls []call
	rules map[string]string
	fail  map[string]error
}

func (f *fakeRunner) Run(_ context.Context, env []string, stdin, name string, args ...string) (string, error) {
	f.calls = append(f.calls, call{env: env, stdin: stdin, name: name, args: args})
	for key, err := range f.fail {
		if strings.Contains(stdin, key) {
			return "", err
		}
	}
	for key, out := range f.rules {
		if strings.Contains(stdin, key) {
			return out, nil
		}
	}
	return "", nil
}

func (f *fakeRunner) scripts() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, strings.TrimSuffix(c.stdin, "\nexit;\n"))
	}
	return out
}

func newTestExecutor(t *testing.T, runner Runner) *Executor {
	t.Helper()
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "dbs"), 0755); err != nil {
		t.Fatal(err)
	}
	e, err := NewExecutor(home, "CLONE1", runner, logger.NewNullLogger())
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return e
}

func TestNewExecutorRequiresHome(t *testing.T) {
	_, err := NewExecutor(filepath.Join(t.TempDir(), "missing"), "X", nil, logger.NewNullLogger())
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, err := NewExecutor(t.TempDir(), "", nil, logger.NewNullLogger()); !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError for empty SID, got %v", err)
	}
}

func TestSQLPlusInvocation(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(t, runner)

	if _, err := e.SQLPlus(context.Background(), "select 1 from dual;"); err != nil {
		t.Fatal(err)
	}
	c := runner.calls[0]
	if c.name != filepath.Join(e.Home(), "bin", "sqlplus") {
		t.Errorf("program = %s", c.name)
	}
	if diff := cmp.Diff([]string{"-S", "/ as sysdba"}, c.args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	want := []string{"ORACLE_HOME=" + e.Home(), "ORACLE_SID=CLONE1"}
	if diff := cmp.Diff(want, c.env); diff != "" {
		t.Errorf("env mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(c.stdin, "exit;\n") {
		t.Errorf("script does not exit: %q", c.stdin)
	}
}

func TestRMANAuxiliary(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestExecutor(t, runner)

	if _, err := e.RMAN(context.Background(), "duplicate database to X;", Auxiliary); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"auxiliary", "/"}, runner.calls[0].args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestStartupNomountVariants(t *testing.T) {
	tests := []struct {
		name string
		opts StartupOptions
		want []string
	}{
		{"plain", StartupOptions{}, []string{"startup nomount"}},
		{"pfile", StartupOptions{Pfile: "/oh/dbs/initX.ora"}, []string{"startup nomount pfile='/oh/dbs/initX.ora'"}},
		{"refresh", StartupOptions{Restart: true}, []string{"shutdown immediate;", "startup nomount"}},
		{"refresh with pfile", StartupOptions{Pfile: "/p", Restart: true}, []string{"shutdown immediate;", "startup nomount pfile='/p'"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			e := newTestExecutor(t, runner)
			if _, err := e.StartupNomount(context.Background(), tt.opts); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, runner.scripts()); diff != "" {
				t.Errorf("scripts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStartupNomountInstanceRunning(t *testing.T) {
	runner := &fakeRunner{rules: map[string]string{
		"startup nomount": "ORA-01081: cannot start already-running ORACLE - shut it down first",
	}}
	e := newTestExecutor(t, runner)

	_, err := e.StartupNomount(context.Background(), StartupOptions{})
	if !errors.Is(err, ErrInstanceRunning) {
		t.Fatalf("expected ErrInstanceRunning, got %v", err)
	}
}

func TestVerifyInstance(t *testing.T) {
	runner := &fakeRunner{rules: map[string]string{"v$instance": "\nINSTANCE_NAME\n----------------\nclone1\n"}}
	if err := newTestExecutor(t, runner).VerifyInstance(context.Background()); err != nil {
		t.Errorf("VerifyInstance() = %v", err)
	}

	runner = &fakeRunner{rules: map[string]string{"v$instance": "ORCL\n"}}
	if err := newTestExecutor(t, runner).VerifyInstance(context.Background()); !errs.Is(err, errs.KindValidation) {
		t.Errorf("VerifyInstance() = %v, want ValidationError", err)
	}
}

func TestDropDatabase(t *testing.T) {
	runner := &fakeRunner{}
	if err := newTestExecutor(t, runner).DropDatabase(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"startup force mount restrict exclusive;", "drop database;"}
	if diff := cmp.Diff(want, runner.scripts()); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
}

func TestDropDatabaseStopsOnMountFailure(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"startup force": errors.New("sqlplus failed")}}
	if err := newTestExecutor(t, runner).DropDatabase(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(runner.calls) != 1 {
		t.Errorf("calls = %d, drop ran after failed mount", len(runner.calls))
	}
}

func TestWriteInitFile(t *testing.T) {
	e := newTestExecutor(t, &fakeRunner{})
	path, err := e.WriteInitFile()
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(e.Home(), "dbs", "initCLONE1.ora") {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "db_name=CLONE1\n" {
		t.Errorf("contents = %q", data)
	}
}

func TestCleanupClone(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"shutdown abort": errors.New("ORA-01034")}}
	e := newTestExecutor(t, runner)
	dbs := filepath.Join(e.Home(), "dbs")
	for _, name := range []string{"initCLONE1.ora", "spfileCLONE1.ora", "lkCLONE1", "initORCL.ora"} {
		if err := os.WriteFile(filepath.Join(dbs, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := CleanupClone(context.Background(), e)
	if err != nil {
		t.Fatalf("CleanupClone() error = %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("removed = %v", removed)
	}
	if _, err := os.Stat(filepath.Join(dbs, "initORCL.ora")); err != nil {
		t.Errorf("another instance's file was removed: %v", err)
	}
}

func TestRequireLocalHost(t *testing.T) {
	host, err := os.Hostname()
	if err != nil {
		t.Skip("no hostname")
	}
	if err := RequireLocalHost(host + ".example.com"); err != nil {
		t.Errorf("RequireLocalHost(local) = %v", err)
	}
	if err := RequireLocalHost("not-" + host); !errs.Is(err, errs.KindValidation) {
		t.Errorf("RequireLocalHost(other) = %v, want ValidationError", err)
	}
}
