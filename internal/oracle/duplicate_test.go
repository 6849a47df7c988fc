package oracle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rbkoracle/internal/errs"
)

func TestBuildDuplicateScript(t *testing.T) {
	tests := []struct {
		name string
		opts DuplicateOptions
		want string
	}{
		{
			name: "minimal",
			opts: DuplicateOptions{NewName: "CLONE1", BackupLocation: "/mnt/rbk"},
			want: "duplicate database to CLONE1 BACKUP LOCATION '/mnt/rbk';",
		},
		{
			name: "spfile with sets and point in time",
			opts: DuplicateOptions{
				NewName: "CLONE1", SourceName: "ORCL", UntilTime: "2024-03-01T10:15:00", SPFile: true,
				DBFileNameConvert: "'/u01/ORCL','/u02/CLONE1'", ControlFiles: "'/u02/CLONE1/control01.ctl'",
				AuditFileDest: "/u02/CLONE1/adump", BackupLocation: "/mnt/rbk", NoFileNameCheck: true,
			},
			want: `duplicate database to CLONE1 until time "TO_DATE('2024-03-01 10:15:00','YYYY-MM-DD HH24:MI:SS')" ` +
				`SPFILE parameter_value_convert ('ORCL','CLONE1') set db_file_name_convert = '/u01/ORCL','/u02/CLONE1' ` +
				`set control_files = '/u02/CLONE1/control01.ctl' set audit_file_dest = '/u02/CLONE1/adump' ` +
				`BACKUP LOCATION '/mnt/rbk' NOFILENAMECHECK;`,
		},
		{
			name: "channels",
			opts: DuplicateOptions{NewName: "C", BackupLocation: "/m", Channels: 2},
			want: "run {\nallocate auxiliary channel aux1 device type disk;\nallocate auxiliary channel aux2 device type disk;\n" +
				"duplicate database to C BACKUP LOCATION '/m';\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildDuplicateScript(tt.opts)
			if err != nil {
				t.Fatalf("BuildDuplicateScript() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("script mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildDuplicateScriptRejects(t *testing.T) {
	for name, opts := range map[string]DuplicateOptions{
		"no location":           {NewName: "C"},
		"sets without spfile":   {NewName: "C", BackupLocation: "/m", ControlFiles: "'/c.ctl'"},
		"spfile without source": {NewName: "C", BackupLocation: "/m", SPFile: true},
	} {
		if _, err := BuildDuplicateScript(opts); !errs.Is(err, errs.KindValidation) {
			t.Errorf("%s: error = %v, want ValidationError", name, err)
		}
	}
}

func TestParseCloneConfig(t *testing.T) {
	doc := `
# duplicate settings
[other]
spfile = false

[parameters]
spfile = no
no_file_name_check = True
refresh_db = yes
drop_database = false
parallelism = 4
db_file_name_convert = '/u01/ORCL','/u02/CLONE'
control_files: '/u02/CLONE/control01.ctl'
`
	cfg, err := ParseCloneConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseCloneConfig() error = %v", err)
	}
	want := CloneConfig{
		SPFile:            false,
		NoFileNameCheck:   true,
		RefreshDB:         true,
		Parallelism:       4,
		DBFileNameConvert: "'/u01/ORCL','/u02/CLONE'",
		ControlFiles:      "'/u02/CLONE/control01.ctl'",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCloneConfigErrors(t *testing.T) {
	for _, doc := range []string{
		"[parameters]\nspfile = maybe\n",
		"[parameters]\nunknown_key = 1\n",
		"[parameters]\nparallelism = -1\n",
		"[parameters]\njust a line\n",
	} {
		if _, err := ParseCloneConfig(strings.NewReader(doc)); !errs.Is(err, errs.KindConfig) {
			t.Errorf("ParseCloneConfig(%q) error = %v, want ConfigError", doc, err)
		}
	}
}

func TestLoadCloneConfigDefaults(t *testing.T) {
	cfg, err := LoadCloneConfig("")
	if err != nil || !cfg.SPFile || cfg.RefreshDB {
		t.Errorf("LoadCloneConfig(\"\") = %+v, %v", cfg, err)
	}
	if _, err := LoadCloneConfig(filepath.Join(t.TempDir(), "missing.ini")); !errs.Is(err, errs.KindConfig) {
		t.Errorf("missing file error = %v, want ConfigError", err)
	}
}

func TestCloneConfigStartup(t *testing.T) {
	if got := (CloneConfig{SPFile: true}).Startup("/init.ora"); got.Pfile != "/init.ora" || got.Restart {
		t.Errorf("spfile startup = %+v", got)
	}
	if got := (CloneConfig{RefreshDB: true}).Startup("/init.ora"); got.Pfile != "" || !got.Restart {
		t.Errorf("refresh startup = %+v", got)
	}
}

func TestNewMountDirectory(t *testing.T) {
	dir, err := NewMountDirectory("/mnt", []string{"old_1"}, []string{"old_1", "ORCL_abc-123_files"})
	if err != nil {
		t.Fatalf("NewMountDirectory() error = %v", err)
	}
	if dir.MountID != "abc-123" || dir.Path != filepath.Join("/mnt", "ORCL_abc-123_files") {
		t.Errorf("dir = %+v", dir)
	}

	_, err = NewMountDirectory("/mnt", nil, []string{"a_1", "b_2"})
	if !errs.Is(err, errs.KindAmbiguous) {
		t.Errorf("two new dirs: error = %v, want Ambiguous", err)
	}
	_, err = NewMountDirectory("/mnt", []string{"a_1"}, []string{"a_1"})
	if !errs.Is(err, errs.KindNotFound) {
		t.Errorf("no new dir: error = %v, want NotFound", err)
	}
	_, err = NewMountDirectory("/mnt", nil, []string{"nounderscore"})
	if !errs.Is(err, errs.KindValidation) {
		t.Errorf("no id: error = %v, want ValidationError", err)
	}
}

func TestListDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "ORCL_1"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "file.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ORCL_1"}, dirs); diff != "" {
		t.Errorf("dirs mismatch (-want +got):\n%s", diff)
	}
}
