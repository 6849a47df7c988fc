package resolve

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/rubrik/rubriktest"
)

func TestSelectDatabase(t *testing.T) {
	log := logger.NewNullLogger()

	tests := []struct {
		name       string
		candidates []rubrik.OracleDB
		host       string
		wantID     string
		wantKind   errs.Kind
		wantErr    bool
	}{
		{
			name:     "no candidates",
			host:     "db01",
			wantErr:  true,
			wantKind: errs.KindNotFound,
		},
		{
			name: "standalone short name match",
			candidates: []rubrik.OracleDB{
				{ID: "db-1", Name: "ORCL", StandaloneHostName: "db01.example.com"},
				{ID: "db-2", Name: "ORCL", StandaloneHostName: "db02.example.com"},
			},
			host:   "db01",
			wantID: "db-1",
		},
		{
			name: "registered under another domain",
			candidates: []rubrik.OracleDB{
				{ID: "db-1", Name: "ORCL", StandaloneHostName: "db01.other.com"},
			},
			host:   "db01.corp.com",
			wantID: "db-1",
		},
		{
			name: "relic is skipped",
			candidates: []rubrik.OracleDB{
				{ID: "old", Name: "ORCL", StandaloneHostName: "db01", IsRelic: true},
				{ID: "new", Name: "ORCL", StandaloneHostName: "db01"},
			},
			host:   "db01",
			wantID: "new",
		},
		{
			name: "RAC instance host",
			candidates: []rubrik.OracleDB{
				{ID: "rac-db", Name: "ORCL", RacName: "prodrac", Instances: []rubrik.Instance{{HostName: "racnode1.example.com"}}},
			},
			host:   "racnode1",
			wantID: "rac-db",
		},
		{
			name: "two members of one Data Guard group collapse to the group",
			candidates: []rubrik.OracleDB{
				{ID: "m1", Name: "ORCL", StandaloneHostName: "db01", DataGuardType: rubrik.DataGuardMember, DataGuardGroupID: "dg-1"},
				{ID: "m2", Name: "ORCL", StandaloneHostName: "db01.example.com", DataGuardType: rubrik.DataGuardMember, DataGuardGroupID: "dg-1"},
			},
			host:   "db01",
			wantID: "dg-1",
		},
		{
			name: "different ids are ambiguous",
			candidates: []rubrik.OracleDB{
				{ID: "a", Name: "ORCL", StandaloneHostName: "db01.a.com"},
				{ID: "b", Name: "ORCL", StandaloneHostName: "db01.b.com"},
			},
			host:     "db01",
			wantErr:  true,
			wantKind: errs.KindAmbiguous,
		},
		{
			name: "host mismatch",
			candidates: []rubrik.OracleDB{
				{ID: "a", Name: "ORCL", StandaloneHostName: "db09"},
			},
			host:     "db01",
			wantErr:  true,
			wantKind: errs.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := selectDatabase(tt.candidates, "ORCL", tt.host, log)
			if tt.wantErr {
				if !errs.Is(err, tt.wantKind) {
					t.Fatalf("error = %v, want %v", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", ref.ID, tt.wantID)
			}
		})
	}
}

func TestSelectDatabaseAmbiguousListsIDs(t *testing.T) {
	_, err := selectDatabase([]rubrik.OracleDB{
		{ID: "b", StandaloneHostName: "db01.b.com"},
		{ID: "a", StandaloneHostName: "db01.a.com"},
	}, "ORCL", "db01", logger.NewNullLogger())

	e, ok := errs.As(err)
	if !ok {
		t.Fatalf("expected typed error, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, e.IDs); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestRefForDataGuardGroup(t *testing.T) {
	ref := refFor(&rubrik.OracleDB{ID: "dg-1", DataGuardType: rubrik.DataGuardGroup}, "db01")
	if ref.Topology != DataGuardGroup || ref.DataGuardRole != RoleGroup || ref.ID != "dg-1" {
		t.Errorf("refFor(group) = %+v", ref)
	}

	ref = refFor(&rubrik.OracleDB{ID: "m1", DataGuardType: rubrik.DataGuardMember}, "db01")
	if ref.DataGuardRole != RoleMember || ref.ID != "m1" {
		t.Errorf("refFor(member without group) = %+v", ref)
	}
}

func TestResolverRESTFallsBackToUniqueName(t *testing.T) {
	cluster := rubriktest.DefaultCluster
	cluster.Version = "5.3.2"
	srv := rubriktest.NewServer(t, cluster)
	srv.Handle(http.MethodGet, "/api/internal/oracle/db", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "" {
			rubriktest.WriteJSON(w, http.StatusOK, rubrik.List[rubrik.OracleDB]{})
			return
		}
		rubriktest.WriteJSON(w, http.StatusOK, rubrik.List[rubrik.OracleDB]{Data: []rubrik.OracleDB{
			{ID: "db-9", Name: "PRODDB", DBUniqueName: "proddb_site1", StandaloneHostName: "db01.example.com"},
			{ID: "db-8", Name: "OTHER", DBUniqueName: "other", StandaloneHostName: "db01.example.com"},
		}})
	})

	ref, err := New(srv.Connect(t)).Database(context.Background(), "PRODDB_SITE1", "db01")
	if err != nil {
		t.Fatalf("Database() error = %v", err)
	}
	if ref.ID != "db-9" {
		t.Errorf("ID = %q, want db-9", ref.ID)
	}
	if n := srv.Count(http.MethodGet, "/api/internal/oracle/db"); n != 2 {
		t.Errorf("database list fetched %d times, want 2", n)
	}
}

func TestResolverQueryMode(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	srv.JSON(http.MethodPost, "/api/internal/graphql", map[string]any{
		"data": map[string]any{
			"oracleDatabaseConnection": map[string]any{
				"nodes": []map[string]any{
					{"id": "m1", "name": "ORCL", "standaloneHostName": "db01", "dataGuardGroupId": "dg-1"},
					{"id": "m2", "name": "ORCL", "standaloneHostName": "db02", "dataGuardGroupId": "dg-1"},
				},
			},
		},
	})

	ref, err := New(srv.Connect(t)).Database(context.Background(), "ORCL", "db02.example.com")
	if err != nil {
		t.Fatalf("Database() error = %v", err)
	}
	if ref.ID != "dg-1" || ref.Topology != DataGuardGroup {
		t.Errorf("ref = %+v, want group dg-1", ref)
	}
}

func TestResolverRejectsIPBeforeNetwork(t *testing.T) {
	srv := rubriktest.NewServer(t, rubriktest.DefaultCluster)
	sess := srv.Connect(t)
	before := len(srv.Requests())

	_, err := New(sess).Database(context.Background(), "ORCL", "10.1.1.5")
	if !errs.Is(err, errs.KindValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(srv.Requests()) != before {
		t.Error("IP host triggered a network call")
	}
}
