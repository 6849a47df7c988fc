package rubrik

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// ClusterVersion is the appliance software version without build suffix.
type ClusterVersion struct {
	v   *version.Version
	raw string
}

// ParseClusterVersion accepts "9.1.2-p3-12345" style strings; everything
// after the first '-' is a build suffix and ignored for ordering.
func ParseClusterVersion(raw string) (ClusterVersion, error) {
	core := strings.SplitN(strings.TrimSpace(raw), "-", 2)[0]
	v, err := version.NewVersion(core)
	if err != nil {
		return ClusterVersion{}, fmt.Errorf("invalid cluster version %q: %w", raw, err)
	}
	return ClusterVersion{v: v, raw: raw}, nil
}

// MustClusterVersion is ParseClusterVersion for literals.
func MustClusterVersion(raw string) ClusterVersion {
	v, err := ParseClusterVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// AtLeast reports v >= min. An unset version is never at least anything.
func (v ClusterVersion) AtLeast(min string) bool {
	if v.v == nil {
		return false
	}
	return v.v.GreaterThanOrEqual(version.Must(version.NewVersion(min)))
}

func (v ClusterVersion) String() string {
	if v.v == nil {
		return "unknown"
	}
	return v.v.String()
}

// Raw returns the version string as reported by the appliance.
func (v ClusterVersion) Raw() string { return v.raw }

// LookupMode selects how databases are found by name.
type LookupMode int

const (
	LookupREST LookupMode = iota
	LookupQuery
)

func (m LookupMode) String() string {
	if m == LookupQuery {
		return "query"
	}
	return "rest"
}

// Capabilities are the version-dependent behaviours, decided once at connect.
type Capabilities struct {
	Lookup           LookupMode
	CombinedTarget   bool // host-or-RAC lookup that also scans RAC node names
	Validate         bool
	OracleHome       bool
	DatabaseRefresh  bool
	ManageProtection bool
}

var capabilityTable = []struct {
	min   string
	apply func(*Capabilities)
}{
	{"5.2.1", func(c *Capabilities) { c.CombinedTarget = true }},
	{"5.3.0", func(c *Capabilities) { c.Validate = true }},
	{"6.0.0", func(c *Capabilities) {
		c.OracleHome = true
		c.Lookup = LookupQuery
	}},
	{"6.0.2", func(c *Capabilities) { c.DatabaseRefresh = true }},
	{"7.0.0", func(c *Capabilities) { c.ManageProtection = true }},
}

// CapabilitiesFor derives the capability set of a cluster version.
func CapabilitiesFor(v ClusterVersion) Capabilities {
	var caps Capabilities
	for _, entry := range capabilityTable {
		if v.AtLeast(entry.min) {
			entry.apply(&caps)
		}
	}
	return caps
}
