//go:build integration

package main

import (
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/Netflix/go-expect"

	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/rubrik/rubriktest"
)

// TestSnapshotOnTerminal runs the binary on a pseudo terminal so the
// progress indicator redraws in place.
func TestSnapshotOnTerminal(t *testing.T) {
	srv := fakeAppliance(t)
	srv.JSON(http.MethodPost, "/api/internal/oracle/db/db-1/snapshot",
		rubrik.AsyncRequest{ID: "SNAP_1", Status: "QUEUED", StartTime: "2024-03-01T10:00:00.000Z"})
	srv.JSON(http.MethodGet, "/api/internal/oracle/request/SNAP_1",
		rubrik.AsyncRequest{ID: "SNAP_1", Status: rubrik.StatusSucceeded, Progress: 100})

	console := startBinary(t, srv, "snapshot", "-s", "db01:ORCL", "--wait", "--progress", "spinner", "--poll_interval", "10ms")

	if _, err := console.ExpectString("Database backup (snapshot) of ORCL completed."); err != nil {
		t.Errorf("snapshot did not complete: %v", err)
	}
	if _, err := console.ExpectString("Session summary: 1 job(s): 1 succeeded"); err != nil {
		t.Errorf("no session summary: %v", err)
	}
}

// TestUnknownDatabaseExitLine checks the single line printed on failure.
func TestUnknownDatabaseExitLine(t *testing.T) {
	srv := fakeAppliance(t)

	console := startBinary(t, srv, "info", "-s", "db01:MISSING")
	if _, err := console.ExpectString("NotFound:"); err != nil {
		t.Errorf("expected a NotFound exit line: %v", err)
	}
}

func fakeAppliance(t *testing.T) *rubriktest.Server {
	cluster := rubriktest.DefaultCluster
	cluster.Version = "5.3.2-p1"
	srv := rubriktest.NewServer(t, cluster)
	db := rubrik.OracleDB{ID: "db-1", Name: "ORCL", StandaloneHostName: "db01.example.com"}
	srv.Handle(http.MethodGet, "/api/internal/oracle/db", func(w http.ResponseWriter, r *http.Request) {
		if name := r.URL.Query().Get("name"); name != "" && name != db.Name {
			rubriktest.WriteJSON(w, http.StatusOK, rubrik.List[rubrik.OracleDB]{})
			return
		}
		rubriktest.WriteJSON(w, http.StatusOK, rubrik.List[rubrik.OracleDB]{Data: []rubrik.OracleDB{db}})
	})
	srv.JSON(http.MethodGet, "/api/internal/oracle/db/db-1", db)
	return srv
}

func startBinary(t *testing.T, srv *rubriktest.Server, args ...string) *expect.Console {
	t.Helper()

	binary := buildBinary(t)
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(),
		"rubrik_cdm_node_ip="+srv.URL,
		"rubrik_cdm_token=test-token",
		"RBK_CONFIG_FILE=",
		"NO_COLOR=true",
	)

	console, err := expect.NewConsole(
		expect.WithStdout(os.Stdout),
		expect.WithDefaultTimeout(20*time.Second),
	)
	if err != nil {
		t.Fatalf("Failed to create console: %v", err)
	}
	t.Cleanup(func() { console.Close() })

	cmd.Stdin = console.Tty()
	cmd.Stdout = console.Tty()
	cmd.Stderr = console.Tty()
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start command: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})
	return console
}

func buildBinary(t *testing.T) string {
	t.Helper()
	binary := filepath.Join(t.TempDir(), "rbkoracle")
	cmd := exec.Command("go", "build", "-o", binary, ".")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}
	return binary
}
