// Package report builds the backup status report of every Oracle database.
package report

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rbkoracle/internal/logger"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/timeconv"
)

// DefaultWorkers bounds the concurrent detail lookups.
const DefaultWorkers = 16

// Headers are the report columns in display order.
var Headers = []string{"Host/Cluster", "Database", "DG_Group", "SLA", "Log Freq", "Last DB BKUP", "Last LOG BKUP", "Missed"}

const none = "None"

// Row is one database, or one Data Guard member, in the report.
type Row struct {
	Host          string `json:"host"`
	Database      string `json:"database"`
	DGGroup       string `json:"dgGroup"`
	SLA           string `json:"sla"`
	LogFrequency  string `json:"logFrequencyMinutes"`
	LastBackup    string `json:"lastBackup"`
	LastLogBackup string `json:"lastLogBackup"`
	Missed        int    `json:"missedSnapshots"`
}

// Cells returns the row in Headers order.
func (r Row) Cells() []string {
	return []string{r.Host, r.Database, r.DGGroup, r.SLA, r.LogFrequency, r.LastBackup, r.LastLogBackup, strconv.Itoa(r.Missed)}
}

// Source lists databases and fetches their details.
type Source interface {
	Databases(ctx context.Context) ([]rubrik.OracleDB, error)
	DatabaseInfo(ctx context.Context, id string) (*rubrik.OracleDB, error)
}

// Builder gathers report rows with a bounded worker pool.
type Builder struct {
	src     Source
	loc     *time.Location
	workers int
	log     logger.Logger
}

func NewBuilder(src Source, loc *time.Location, workers int, log logger.Logger) *Builder {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{src: src, loc: loc, workers: workers, log: log}
}

// Build lists every non-relic database, fetches the details of each
// standalone/RAC database and each Data Guard group concurrently, and
// returns the rows sorted by host then database. The first failed lookup
// cancels the rest.
func (b *Builder) Build(ctx context.Context) ([]Row, error) {
	op := b.log.StartOperation("Backup report")

	dbs, err := b.src.Databases(ctx)
	if err != nil {
		op.Fail("listing databases failed")
		return nil, err
	}

	var standalone []rubrik.OracleDB
	var groups []string
	for _, db := range dbs {
		if db.IsRelic {
			continue
		}
		switch db.DataGuardType {
		case rubrik.DataGuardMember:
			if db.DataGuardGroupID != "" {
				groups = append(groups, db.DataGuardGroupID)
			}
		case "", rubrik.NonDataGuard:
			standalone = append(standalone, db)
		}
	}
	slices.Sort(groups)
	groups = slices.Compact(groups)
	b.log.Debug("Report inputs", "databases", len(standalone), "dg_groups", len(groups))

	// Each task owns one slot so no locking is needed.
	results := make([][]Row, len(standalone)+len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, db := range standalone {
		i, db := i, db
		g.Go(func() error {
			details, err := b.src.DatabaseInfo(gctx, db.ID)
			if err != nil {
				return err
			}
			results[i] = []Row{b.databaseRow(&db, details)}
			return nil
		})
	}
	for j, id := range groups {
		id := id
		slot := len(standalone) + j
		g.Go(func() error {
			details, err := b.src.DatabaseInfo(gctx, id)
			if err != nil {
				return err
			}
			b.log.Debug("DG group details", "id", id, "members", len(details.DataGuardGroupMembers))
			results[slot] = b.groupRows(details)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		op.Fail("detail lookup failed")
		return nil, err
	}

	var rows []Row
	for _, r := range results {
		rows = append(rows, r...)
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := strings.Compare(a.Host, b.Host); c != 0 {
			return c
		}
		return strings.Compare(a.Database, b.Database)
	})
	op.Complete("report built", "rows", len(rows))
	return rows, nil
}

func (b *Builder) databaseRow(db, details *rubrik.OracleDB) Row {
	host := db.StandaloneHostName
	if host == "" {
		host = db.RacName
	}
	name := db.SID
	if name == "" {
		name = db.Name
	}
	return Row{
		Host:          host,
		Database:      name,
		DGGroup:       none,
		SLA:           db.SLAName(),
		LogFrequency:  logFrequency(db.LogBackupFrequencyInMinutes),
		LastBackup:    b.wall(db.LastSnapshotTime),
		LastLogBackup: b.wall(details.LatestRecoveryPoint),
		Missed:        db.NumMissedSnapshot,
	}
}

func (b *Builder) groupRows(group *rubrik.OracleDB) []Row {
	rows := make([]Row, 0, len(group.DataGuardGroupMembers))
	for _, m := range group.DataGuardGroupMembers {
		rows = append(rows, Row{
			Host:          m.Host(),
			Database:      m.DBUniqueName + "-" + m.Role,
			DGGroup:       group.DBUniqueName,
			SLA:           group.SLAName(),
			LogFrequency:  logFrequency(group.LogBackupFrequencyInMinutes),
			LastBackup:    b.wall(group.LastSnapshotTime),
			LastLogBackup: b.wall(group.LatestRecoveryPoint),
			Missed:        group.NumMissedSnapshot,
		})
	}
	return rows
}

func (b *Builder) wall(iso string) string {
	if iso == "" {
		return none
	}
	return timeconv.Wall(iso, b.loc)
}

func logFrequency(minutes int) string {
	if minutes <= 0 {
		return none
	}
	return strconv.Itoa(minutes)
}
