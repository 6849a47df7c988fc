package request

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/rubrik/rubriktest"
)

func pending(id string) rubrik.AsyncRequest {
	return rubrik.AsyncRequest{ID: id, Status: "QUEUED", StartTime: "2024-03-01T10:00:00.000Z"}
}

func lastBody(t *testing.T, srv *rubriktest.Server, path string) map[string]any {
	t.Helper()
	for _, r := range srv.Requests() {
		if r.Path == path {
			var m map[string]any
			if err := json.Unmarshal(r.Body, &m); err != nil {
				t.Fatalf("decode body of %s: %v", path, err)
			}
			return m
		}
	}
	t.Fatalf("no request to %s", path)
	return nil
}

func TestLiveMountPayload(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	srv.JSON(http.MethodPost, "/api/internal/oracle/db/db-1/mount", pending("MOUNT_1"))

	job, err := New(srv.Connect(t), nil).LiveMount(context.Background(), "db-1", MountOptions{
		TargetID:      "host-1",
		RecoveryPoint: RecoveryPoint{TimestampMs: 1546300800000},
		ACO:           ACO{{Key: "SPFILE_LOCATION", Value: "/sp"}, {Key: "ORACLE_HOME", Value: "/old"}},
		OracleHome:    "'/u01/19c'",
	})
	if err != nil {
		t.Fatalf("LiveMount() error = %v", err)
	}
	if job.ID != "MOUNT_1" || job.Status != "QUEUED" {
		t.Errorf("job = %+v", job)
	}

	body := lastBody(t, srv, "/api/internal/oracle/db/db-1/mount")
	want := map[string]any{
		"recoveryPoint":           map[string]any{"timestampMs": float64(1546300800000)},
		"targetOracleHostOrRacId": "host-1",
		"shouldMountFilesOnly":    false,
		"advancedRecoveryConfigMap": map[string]any{
			"SPFILE_LOCATION": "/sp",
			"ORACLE_HOME":     "/u01/19c",
		},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("mount body mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesOnlyMountWithoutPathMakesNoRequest(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	sub := New(srv.Connect(t), nil)
	before := len(srv.Requests())

	_, err := sub.LiveMount(context.Background(), "db-1", MountOptions{TargetID: "host-1", FilesOnly: true})
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(srv.Requests()) != before {
		t.Error("request was sent for an invalid mount")
	}
}

func TestClonePayload(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	srv.JSON(http.MethodPost, "/api/internal/oracle/db/db-1/export", pending("CLONE_1"))

	_, err := New(srv.Connect(t), nil).Clone(context.Background(), "db-1", CloneOptions{
		TargetID:      "rac-1",
		RecoveryPoint: RecoveryPoint{TimestampMs: 42000},
		SourceName:    "ORCL",
		NewName:       "CLN1",
		ACO: ACO{
			{Key: "control_files", Value: "/u02/CLN1/control01.ctl"},
			{Key: "db_create_file_dest", Value: "/u02"},
		},
		OracleHome: "/u01/19c",
	})
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}

	body := lastBody(t, srv, "/api/internal/oracle/db/db-1/export")
	if body["cloneDbName"] != "CLN1" || body["targetOracleHostOrRacId"] != "rac-1" || body["shouldRestoreFilesOnly"] != false {
		t.Errorf("clone body = %v", body)
	}
	raw, err := base64.StdEncoding.DecodeString(body["advancedRecoveryConfigBase64"].(string))
	if err != nil {
		t.Fatal(err)
	}
	want := "control_files=/u02/CLN1/control01.ctl\ndb_create_file_dest=/u02\nORACLE_HOME=/u01/19c\n"
	if string(raw) != want {
		t.Errorf("ACO = %q, want %q", raw, want)
	}
}

func TestUnmountPassesForce(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	srv.JSON(http.MethodDelete, "/api/internal/oracle/db/mount/OracleMount:::m1", pending("UNMOUNT_1"))

	job, err := New(srv.Connect(t), nil).Unmount(context.Background(), "OracleMount:::m1", true)
	if err != nil {
		t.Fatalf("Unmount() error = %v", err)
	}
	if job.ID != "UNMOUNT_1" {
		t.Errorf("job = %+v", job)
	}
	reqs := srv.Requests()
	if q := reqs[len(reqs)-1].Query; q != "force=true" {
		t.Errorf("query = %q, want force=true", q)
	}
}

func TestSnapshotHTTPErrorIsRequestFailed(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	srv.Handle(http.MethodPost, "/api/internal/oracle/db/db-1/snapshot", func(w http.ResponseWriter, r *http.Request) {
		rubriktest.WriteJSON(w, http.StatusConflict, map[string]string{"message": "snapshot already running"})
	})

	_, err := New(srv.Connect(t), nil).Snapshot(context.Background(), "db-1", "sla-1", true)
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindRequestFailed {
		t.Fatalf("expected RequestFailed, got %v", err)
	}
	body := lastBody(t, srv, "/api/internal/oracle/db/db-1/snapshot")
	if body["slaId"] != "sla-1" || body["forceFullSnapshot"] != true {
		t.Errorf("snapshot body = %v", body)
	}
}

func TestCapabilityGates(t *testing.T) {
	cluster := rubriktest.DefaultCluster
	cluster.Version = "5.2.0"
	srv := rubriktest.NewServer(t, cluster)
	sub := New(srv.Connect(t), nil)
	before := len(srv.Requests())
	ctx := context.Background()

	if _, err := sub.Validate(ctx, "db-1", "host-1", RecoveryPoint{}); !errs.Is(err, errs.KindValidation) {
		t.Errorf("Validate() on 5.2 = %v", err)
	}
	if _, err := sub.RefreshDatabase(ctx, "db-1"); !errs.Is(err, errs.KindValidation) {
		t.Errorf("RefreshDatabase() on 5.2 = %v", err)
	}
	if _, err := sub.Unprotect(ctx, "db-1"); !errs.Is(err, errs.KindValidation) {
		t.Errorf("Unprotect() on 5.2 = %v", err)
	}
	if len(srv.Requests()) != before {
		t.Error("gated operation reached the appliance")
	}
}

func TestAssignSLASentinels(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	srv.JSON(http.MethodPost, "/api/v2/sla_domain/UNPROTECTED/assign",
		[]rubrik.SLAAssignment{{ID: "db-1", PendingSLADomainName: "Unprotected"}})
	srv.JSON(http.MethodPost, "/api/v2/sla_domain/INHERIT/assign", []rubrik.SLAAssignment{{ID: "db-1"}})
	sub := New(srv.Connect(t), nil)

	pending, err := sub.Unprotect(context.Background(), "db-1")
	if err != nil {
		t.Fatalf("Unprotect() error = %v", err)
	}
	if len(pending) != 1 || pending[0].PendingSLADomainName != "Unprotected" {
		t.Errorf("Unprotect() = %+v", pending)
	}
	if _, err := sub.Inherit(context.Background(), "db-1"); err != nil {
		t.Fatalf("Inherit() error = %v", err)
	}

	body := lastBody(t, srv, "/api/v2/sla_domain/UNPROTECTED/assign")
	want := map[string]any{"managedIds": []any{"db-1"}, "existingSnapshotRetention": "RetainSnapshots"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("assign body mismatch (-want +got):\n%s", diff)
	}
	if srv.Count(http.MethodPost, "/api/v2/sla_domain/INHERIT/assign") != 1 {
		t.Error("inherit request not sent")
	}
}

func TestRefreshDatabase(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	job := pending("REFRESH_1")
	job.Links = []rubrik.Link{{Href: "https://cluster/api/internal/oracle/request/REFRESH_1", Rel: "self"}}
	srv.JSON(http.MethodPost, "/api/v1/oracle/db/db-1/refresh", job)

	got, err := New(srv.Connect(t), nil).RefreshDatabase(context.Background(), "db-1")
	if err != nil {
		t.Fatalf("RefreshDatabase() error = %v", err)
	}
	if got.ID != "REFRESH_1" || len(got.Links) != 1 {
		t.Errorf("job = %+v", got)
	}
}
