package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"rbkoracle/internal/logger"
	"rbkoracle/internal/rubrik"
)

type fakeSource struct {
	dbs     []rubrik.OracleDB
	details map[string]*rubrik.OracleDB
	failID  string

	mu       sync.Mutex
	fetched  []string
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSource) Databases(context.Context) ([]rubrik.OracleDB, error) {
	return f.dbs, nil
}

func (f *fakeSource) DatabaseInfo(ctx context.Context, id string) (*rubrik.OracleDB, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	f.mu.Unlock()

	if id == f.failID {
		return nil, errors.New("boom")
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return &rubrik.OracleDB{ID: id}, nil
}

func sampleSource() *fakeSource {
	return &fakeSource{
		dbs: []rubrik.OracleDB{
			{ID: "db2", SID: "ORCL", StandaloneHostName: "db02", EffectiveSLADomainName: "Gold",
				LogBackupFrequencyInMinutes: 30, LastSnapshotTime: "2024-01-02T06:00:00.000Z", NumMissedSnapshot: 1},
			{ID: "db1", SID: "HR", RacName: "prodrac", EffectiveSLADomainName: "Silver"},
			{ID: "relic", SID: "OLD", StandaloneHostName: "db01", IsRelic: true},
			{ID: "m1", DataGuardType: rubrik.DataGuardMember, DataGuardGroupID: "dg1"},
			{ID: "m2", DataGuardType: rubrik.DataGuardMember, DataGuardGroupID: "dg1"},
		},
		details: map[string]*rubrik.OracleDB{
			"db2": {ID: "db2", LatestRecoveryPoint: "2024-01-02T07:00:00.000Z"},
			"dg1": {
				ID: "dg1", DBUniqueName: "FIN", EffectiveSLADomainName: "Gold",
				LatestRecoveryPoint: "2024-01-02T08:00:00.000Z",
				DataGuardGroupMembers: []rubrik.DataGuardMemberInfo{
					{DBUniqueName: "fin_a", Role: "PRIMARY", StandaloneHostName: "dga"},
					{DBUniqueName: "fin_b", Role: "STANDBY", StandaloneHostName: "dgb"},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	src := sampleSource()
	rows, err := NewBuilder(src, time.UTC, 4, logger.NewNullLogger()).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []Row{
		{Host: "db02", Database: "ORCL", DGGroup: "None", SLA: "Gold", LogFrequency: "30",
			LastBackup: "2024-01-02 06:00:00", LastLogBackup: "2024-01-02 07:00:00", Missed: 1},
		{Host: "dga", Database: "fin_a-PRIMARY", DGGroup: "FIN", SLA: "Gold", LogFrequency: "None",
			LastBackup: "None", LastLogBackup: "2024-01-02 08:00:00"},
		{Host: "dgb", Database: "fin_b-STANDBY", DGGroup: "FIN", SLA: "Gold", LogFrequency: "None",
			LastBackup: "None", LastLogBackup: "2024-01-02 08:00:00"},
		{Host: "prodrac", Database: "HR", DGGroup: "None", SLA: "Silver", LogFrequency: "None",
			LastBackup: "None", LastLogBackup: "None"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	// dg1 is fetched once even though two members point at it; the relic never.
	if len(src.fetched) != 3 {
		t.Errorf("fetched %v, want db1, db2 and dg1", src.fetched)
	}
}

func TestBuildRespectsWorkerLimit(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 20; i++ {
		src.dbs = append(src.dbs, rubrik.OracleDB{ID: string(rune('a' + i)), StandaloneHostName: "h"})
	}
	if _, err := NewBuilder(src, time.UTC, 3, logger.NewNullLogger()).Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p := src.peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestBuildPropagatesFailure(t *testing.T) {
	src := sampleSource()
	src.failID = "dg1"
	if _, err := NewBuilder(src, time.UTC, 2, logger.NewNullLogger()).Build(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRenderJSONAndTable(t *testing.T) {
	rows := []Row{{Host: "db01", Database: "ORCL", DGGroup: "None", SLA: "Gold", Missed: 2}}

	var buf bytes.Buffer
	if err := Render(&buf, rows, FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	var decoded []Row
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded[0].Missed != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	out := Table(rows, false)
	for _, want := range append(Headers, "db01", "ORCL", "Gold") {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, nil, FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON = %q", buf.String())
	}
}

type memBackend struct {
	key, contentType string
	body             []byte
}

func (m *memBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	m.key, m.contentType = key, contentType
	var err error
	m.body, err = io.ReadAll(r)
	return err
}

func (m *memBackend) Name() string { return "mem" }

func TestUpload(t *testing.T) {
	b := &memBackend{}
	rows := []Row{{Host: "db01", Database: "ORCL"}}
	if err := Upload(context.Background(), b, "r/report.json", rows, FormatJSON, logger.NewNullLogger()); err != nil {
		t.Fatal(err)
	}
	if b.key != "r/report.json" || b.contentType != "application/json" || !bytes.Contains(b.body, []byte(`"db01"`)) {
		t.Errorf("uploaded %q %q %s", b.key, b.contentType, b.body)
	}
}

func TestDefaultName(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := DefaultName(FormatJSON, now); got != "oracle_backup_report_20240102T030405Z.json" {
		t.Errorf("DefaultName() = %q", got)
	}
}
