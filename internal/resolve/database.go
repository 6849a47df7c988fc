// Package resolve maps human-supplied names to appliance object ids.
package resolve

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/rubrik"
)

// Topology is the shape of a protected database.
type Topology int

const (
	Standalone Topology = iota
	RAC
	DataGuardGroup
)

func (t Topology) String() string {
	switch t {
	case Standalone:
		return "standalone"
	case RAC:
		return "RAC"
	case DataGuardGroup:
		return "Data Guard group"
	default:
		return fmt.Sprintf("Topology(%d)", int(t))
	}
}

// TopologyOf classifies a database object.
func TopologyOf(db *rubrik.OracleDB) Topology {
	switch {
	case db.DataGuardType == rubrik.DataGuardGroup:
		return DataGuardGroup
	case db.IsRAC():
		return RAC
	default:
		return Standalone
	}
}

// DataGuardRole tells what kind of Data Guard object an id denotes.
type DataGuardRole int

const (
	RoleNone DataGuardRole = iota
	RoleMember
	RoleGroup
)

func (r DataGuardRole) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleGroup:
		return "group"
	default:
		return "none"
	}
}

// DatabaseRef is a resolved database identity.
type DatabaseRef struct {
	ID            string
	Name          string
	HostOrCluster string
	Topology      Topology
	DataGuardRole DataGuardRole
}

// IsRAC reports a RAC database.
func (r DatabaseRef) IsRAC() bool { return r.Topology == RAC }

// Resolver looks objects up on one appliance session.
type Resolver struct {
	s   *rubrik.Session
	log logger.Logger
}

// New creates a resolver bound to s.
func New(s *rubrik.Session) *Resolver {
	return &Resolver{s: s, log: s.Logger()}
}

// Database resolves name on hostOrCluster to exactly one database id.
// Data Guard members resolve to their group id.
func (r *Resolver) Database(ctx context.Context, name, hostOrCluster string) (DatabaseRef, error) {
	if err := RequireHostname(hostOrCluster); err != nil {
		return DatabaseRef{}, err
	}

	var (
		candidates []rubrik.OracleDB
		err        error
	)
	switch r.s.Capabilities().Lookup {
	case rubrik.LookupQuery:
		candidates, err = r.queryCandidates(ctx, name)
	default:
		candidates, err = r.restCandidates(ctx, name)
	}
	if err != nil {
		return DatabaseRef{}, err
	}

	return selectDatabase(candidates, name, hostOrCluster, r.log)
}

// selectDatabase applies host matching, relic filtering, Data Guard group
// substitution and id deduplication.
func selectDatabase(candidates []rubrik.OracleDB, name, hostOrCluster string, log logger.Logger) (DatabaseRef, error) {
	refs := make(map[string]DatabaseRef)
	for i := range candidates {
		db := &candidates[i]
		if db.IsRelic {
			log.Debug("Skipping relic database", "id", db.ID, "name", db.Name)
			continue
		}
		if !matchesHost(db, hostOrCluster) {
			continue
		}
		ref := refFor(db, hostOrCluster)
		log.Debug("Database candidate matched", "id", db.ID, "resolved_id", ref.ID, "host", hostOrCluster)
		refs[ref.ID] = ref
	}

	switch len(refs) {
	case 0:
		return DatabaseRef{}, errs.NotFound("no database %s found on %s", name, hostOrCluster)
	case 1:
		for _, ref := range refs {
			return ref, nil
		}
	}

	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return DatabaseRef{}, errs.Ambiguous(ids, "database %s on %s matches %d objects", name, hostOrCluster, len(ids))
}

func matchesHost(db *rubrik.OracleDB, host string) bool {
	if MatchHostname(host, db.StandaloneHostName) || MatchHostname(host, db.RacName) {
		return true
	}
	for _, inst := range db.Instances {
		if MatchHostname(host, inst.HostName) {
			return true
		}
	}
	for _, m := range db.DataGuardGroupMembers {
		if MatchHostname(host, m.Host()) {
			return true
		}
	}
	return false
}

func refFor(db *rubrik.OracleDB, host string) DatabaseRef {
	ref := DatabaseRef{
		ID:            db.ID,
		Name:          db.Name,
		HostOrCluster: host,
		Topology:      TopologyOf(db),
	}
	switch {
	case db.DataGuardType == rubrik.DataGuardGroup:
		ref.DataGuardRole = RoleGroup
	case db.DataGuardGroupID != "" && db.DataGuardGroupID != db.ID:
		ref.ID = db.DataGuardGroupID
		ref.DataGuardRole = RoleGroup
		ref.Topology = DataGuardGroup
	case db.DataGuardType == rubrik.DataGuardMember:
		ref.DataGuardRole = RoleMember
	}
	return ref
}

// restCandidates lists databases by exact name, falling back to a
// case-insensitive db unique name match over the full list.
func (r *Resolver) restCandidates(ctx context.Context, name string) ([]rubrik.OracleDB, error) {
	var list rubrik.List[rubrik.OracleDB]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db?name="+url.QueryEscape(name), &list); err != nil {
		return nil, err
	}

	var matched []rubrik.OracleDB
	for _, db := range list.Data {
		if db.Name == name {
			matched = append(matched, db)
		}
	}
	if len(matched) > 0 {
		return matched, nil
	}

	r.log.Debug("No database by name, trying db unique name", "name", name)
	list = rubrik.List[rubrik.OracleDB]{}
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db", &list); err != nil {
		return nil, err
	}
	return filterUniqueName(list.Data, name), nil
}

func filterUniqueName(dbs []rubrik.OracleDB, name string) []rubrik.OracleDB {
	var out []rubrik.OracleDB
	for _, db := range dbs {
		if strings.EqualFold(db.DBUniqueName, name) {
			out = append(out, db)
		}
	}
	return out
}

const databaseQuery = `query OracleDatabase($name: String, $isRelic: Boolean, $shouldIncludeDataGuardGroups: Boolean, $first: Int, $after: String, $sortBy: String, $sortOrder: String) {
  oracleDatabaseConnection(name: $name, isRelic: $isRelic, shouldIncludeDataGuardGroups: $shouldIncludeDataGuardGroups, first: $first, after: $after, sortBy: $sortBy, sortOrder: $sortOrder) {
    nodes {
      id
      name
      sid
      racId
      databaseRole
      dbUniqueName
      dataGuardType
      dataGuardGroupId
      dataGuardGroupName
      standaloneHostId
      primaryClusterId
      slaAssignment
      configuredSlaDomainName
      effectiveSlaDomain {
        id
        name
      }
      isRelic
      numInstances
      instances {
        hostName
        instanceSid
      }
      standaloneHostName
      racName
      logBackupFrequencyInMinutes
    }
  }
}`

type databaseQueryResponse struct {
	Data struct {
		OracleDatabaseConnection struct {
			Nodes []rubrik.OracleDB `json:"nodes"`
		} `json:"oracleDatabaseConnection"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// queryCandidates runs the GraphQL database connection by name, repeating it
// unfiltered with a db unique name match when nothing is returned.
func (r *Resolver) queryCandidates(ctx context.Context, name string) ([]rubrik.OracleDB, error) {
	nodes, err := r.runDatabaseQuery(ctx, name)
	if err != nil {
		return nil, err
	}
	var matched []rubrik.OracleDB
	for _, db := range nodes {
		if strings.EqualFold(db.Name, name) {
			matched = append(matched, db)
		}
	}
	if len(matched) > 0 {
		return matched, nil
	}

	r.log.Debug("No database by name in query, trying db unique name", "name", name)
	nodes, err = r.runDatabaseQuery(ctx, "")
	if err != nil {
		return nil, err
	}
	return filterUniqueName(nodes, name), nil
}

func (r *Resolver) runDatabaseQuery(ctx context.Context, name string) ([]rubrik.OracleDB, error) {
	variables := map[string]any{
		"sortOrder":                    "asc",
		"shouldIncludeDataGuardGroups": true,
	}
	if name != "" {
		variables["name"] = name
	}

	var resp databaseQueryResponse
	payload := map[string]any{"query": databaseQuery, "variables": variables}
	if err := r.s.Post(ctx, rubrik.Internal, "/graphql", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, errs.RequestFailed("http", nil, "database query: %s", resp.Errors[0].Message)
	}
	return resp.Data.OracleDatabaseConnection.Nodes, nil
}
