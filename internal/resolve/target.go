package resolve

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/rubrik"
)

// TargetKind tells whether a mount target is a host or a RAC cluster.
type TargetKind int

const (
	TargetHost TargetKind = iota
	TargetRAC
)

func (k TargetKind) String() string {
	if k == TargetRAC {
		return "RAC cluster"
	}
	return "host"
}

// MountTarget is where a live mount or clone lands.
type MountTarget struct {
	ID   string
	Name string
	Kind TargetKind
}

// Target resolves a mount or clone destination. Clusters without the
// combined lookup require a RAC target for a RAC source and a host otherwise.
func (r *Resolver) Target(ctx context.Context, name string, source Topology) (MountTarget, error) {
	if err := RequireHostname(name); err != nil {
		return MountTarget{}, err
	}
	if r.s.Capabilities().CombinedTarget {
		return r.HostOrRAC(ctx, name)
	}

	switch source {
	case RAC:
		t, err := r.RAC(ctx, name)
		if errs.Is(err, errs.KindNotFound) {
			return MountTarget{}, errs.NotFound("source database is RAC so the target must be a RAC cluster: no RAC cluster named %s", name)
		}
		return t, err
	case Standalone:
		return r.Host(ctx, name)
	case DataGuardGroup:
		t, err := r.Host(ctx, name)
		if errs.Is(err, errs.KindNotFound) {
			return r.RAC(ctx, name)
		}
		return t, err
	}
	return MountTarget{}, errs.Validation("unsupported source topology %s", source)
}

// HostOrRAC tries, in order, a host, a RAC cluster name, then RAC node names.
func (r *Resolver) HostOrRAC(ctx context.Context, name string) (MountTarget, error) {
	if err := RequireHostname(name); err != nil {
		return MountTarget{}, err
	}

	t, err := r.Host(ctx, name)
	if !errs.Is(err, errs.KindNotFound) {
		return t, err
	}
	t, err = r.RAC(ctx, name)
	if !errs.Is(err, errs.KindNotFound) {
		return t, err
	}
	if r.s.Capabilities().CombinedTarget {
		t, err = r.racByNode(ctx, name)
		if !errs.Is(err, errs.KindNotFound) {
			return t, err
		}
	}
	return MountTarget{}, errs.NotFound("no connected host or RAC cluster named %s", name)
}

// Host resolves a connected host registered to this cluster. Exact name
// matches win over matches with the domain suffix stripped.
func (r *Resolver) Host(ctx context.Context, name string) (MountTarget, error) {
	if err := RequireHostname(name); err != nil {
		return MountTarget{}, err
	}

	var list rubrik.List[rubrik.OracleHost]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/host?name="+url.QueryEscape(name), &list); err != nil {
		return MountTarget{}, err
	}

	var exact, short []rubrik.OracleHost
	for _, h := range list.Data {
		if h.Status != rubrik.HostStatusConnected || !r.sameCluster(h.PrimaryClusterID) {
			continue
		}
		switch {
		case strings.EqualFold(h.Name, name):
			exact = append(exact, h)
		case strings.EqualFold(ShortName(h.Name), ShortName(name)):
			short = append(short, h)
		}
	}

	hosts := exact
	if len(hosts) == 0 {
		hosts = short
	}
	switch len(hosts) {
	case 0:
		return MountTarget{}, errs.NotFound("no connected host named %s", name)
	case 1:
		return MountTarget{ID: hosts[0].ID, Name: hosts[0].Name, Kind: TargetHost}, nil
	}
	ids := make([]string, 0, len(hosts))
	for _, h := range hosts {
		ids = append(ids, h.ID)
	}
	slices.Sort(ids)
	return MountTarget{}, errs.Ambiguous(slices.Compact(ids), "host name %s matches several hosts", name)
}

// RAC resolves a RAC cluster by exact name.
func (r *Resolver) RAC(ctx context.Context, name string) (MountTarget, error) {
	if err := RequireHostname(name); err != nil {
		return MountTarget{}, err
	}

	var list rubrik.List[rubrik.OracleRAC]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/rac?name="+url.QueryEscape(name), &list); err != nil {
		return MountTarget{}, err
	}

	var found []rubrik.OracleRAC
	for _, rac := range list.Data {
		if strings.EqualFold(rac.Name, name) && r.sameCluster(rac.PrimaryClusterID) {
			found = append(found, rac)
		}
	}
	return pickRAC(found, name, "RAC cluster named")
}

// racByNode finds the RAC cluster that has name as one of its nodes.
func (r *Resolver) racByNode(ctx context.Context, name string) (MountTarget, error) {
	var list rubrik.List[rubrik.OracleRAC]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/rac", &list); err != nil {
		return MountTarget{}, err
	}

	var found []rubrik.OracleRAC
	for _, rac := range list.Data {
		if !r.sameCluster(rac.PrimaryClusterID) {
			continue
		}
		for _, node := range rac.Nodes {
			if strings.EqualFold(ShortName(node.NodeName), ShortName(name)) {
				found = append(found, rac)
				break
			}
		}
	}
	return pickRAC(found, name, "RAC cluster with node")
}

func pickRAC(found []rubrik.OracleRAC, name, what string) (MountTarget, error) {
	switch len(found) {
	case 0:
		return MountTarget{}, errs.NotFound("no %s %s", what, name)
	case 1:
		return MountTarget{ID: found[0].ID, Name: found[0].Name, Kind: TargetRAC}, nil
	}
	ids := make([]string, 0, len(found))
	for _, rac := range found {
		ids = append(ids, rac.ID)
	}
	slices.Sort(ids)
	return MountTarget{}, errs.Ambiguous(ids, "%s %s matches several clusters", what, name)
}

// sameCluster accepts objects without a primary cluster id.
func (r *Resolver) sameCluster(primaryClusterID string) bool {
	return primaryClusterID == "" || r.s.ClusterID() == "" || primaryClusterID == r.s.ClusterID()
}
