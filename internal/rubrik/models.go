package rubrik

import "strings"

// List is the paged list envelope used by the REST endpoints.
type List[T any] struct {
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
	Data    []T  `json:"data"`
}

// Data Guard types reported on database objects.
const (
	NonDataGuard    = "NonDataGuard"
	DataGuardMember = "DataGuardMember"
	DataGuardGroup  = "DataGuardGroup"
)

// OracleDB is an Oracle database object as returned by the database endpoints
// and the GraphQL database connection.
type OracleDB struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	SID                string     `json:"sid"`
	DBUniqueName       string     `json:"dbUniqueName"`
	DatabaseRole       string     `json:"databaseRole"`
	StandaloneHostID   string     `json:"standaloneHostId"`
	StandaloneHostName string     `json:"standaloneHostName"`
	RacID              string     `json:"racId"`
	RacName            string     `json:"racName"`
	Instances          []Instance `json:"instances"`
	NumInstances       int        `json:"numInstances"`
	IsRelic            bool       `json:"isRelic"`
	OracleHome         string     `json:"oracleHome"`
	PrimaryClusterID   string     `json:"primaryClusterId"`

	DataGuardType         string                `json:"dataGuardType"`
	DataGuardGroupID      string                `json:"dataGuardGroupId"`
	DataGuardGroupName    string                `json:"dataGuardGroupName"`
	DataGuardGroupMembers []DataGuardMemberInfo `json:"dataGuardGroupMembers"`

	EffectiveSLADomainID    string     `json:"effectiveSlaDomainId"`
	EffectiveSLADomainName  string     `json:"effectiveSlaDomainName"`
	EffectiveSLADomain      *SLADomain `json:"effectiveSlaDomain"`
	ConfiguredSLADomainName string     `json:"configuredSlaDomainName"`
	SLAAssignment           string     `json:"slaAssignment"`

	LatestRecoveryPoint         string `json:"latestRecoveryPoint"`
	OldestRecoveryPoint         string `json:"oldestRecoveryPoint"`
	LastSnapshotTime            string `json:"lastSnapshotTime"`
	NumMissedSnapshot           int    `json:"numMissedSnapshot"`
	LogBackupFrequencyInMinutes int    `json:"logBackupFrequencyInMinutes"`
	LogRetentionHours           int    `json:"logRetentionHours"`
	HostLogRetentionHours       int    `json:"hostLogRetentionHours"`
	SnapshotCount               int    `json:"snapshotCount"`
}

// SLAName returns the effective SLA domain name from either response shape.
func (d *OracleDB) SLAName() string {
	if d.EffectiveSLADomainName != "" {
		return d.EffectiveSLADomainName
	}
	if d.EffectiveSLADomain != nil {
		return d.EffectiveSLADomain.Name
	}
	return ""
}

// IsRAC reports whether the database runs on a RAC cluster.
func (d *OracleDB) IsRAC() bool {
	return d.RacName != "" || d.RacID != ""
}

// Instance is one RAC instance of a database.
type Instance struct {
	HostName    string `json:"hostName"`
	InstanceSid string `json:"instanceSid"`
}

// DataGuardMemberInfo describes a member of a Data Guard group.
type DataGuardMemberInfo struct {
	DBUniqueName       string `json:"dbUniqueName"`
	Role               string `json:"role"`
	StandaloneHostName string `json:"standaloneHostName"`
	RacName            string `json:"racName"`
}

// Host returns the standalone host or RAC name of a member.
func (m DataGuardMemberInfo) Host() string {
	if m.StandaloneHostName != "" {
		return m.StandaloneHostName
	}
	return m.RacName
}

// OracleHost is a registered Oracle host.
type OracleHost struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	PrimaryClusterID string `json:"primaryClusterId"`
	OracleHome       string `json:"oracleHome"`
}

// OracleRAC is a registered RAC cluster.
type OracleRAC struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	PrimaryClusterID string    `json:"primaryClusterId"`
	Nodes            []RACNode `json:"nodes"`
}

// RACNode is one node of a RAC cluster.
type RACNode struct {
	NodeName string `json:"nodeName"`
	HostID   string `json:"hostId"`
	Status   string `json:"status"`
}

// HostStatusConnected is the status of a reachable host.
const HostStatusConnected = "Connected"

// OracleMount is a live mount of a database snapshot.
type OracleMount struct {
	ID                 string `json:"id"`
	SourceDatabaseID   string `json:"sourceDatabaseId"`
	SourceDatabaseName string `json:"sourceDatabaseName"`
	MountedDatabaseID  string `json:"mountedDatabaseId"`
	TargetHostID       string `json:"targetHostId"`
	TargetHostName     string `json:"targetHostname"`
	TargetRacID        string `json:"targetRacId"`
	Status             string `json:"status"`
	IsReady            bool   `json:"isReady"`
	IsFilesOnlyMount   bool   `json:"isFilesOnlyMount"`
	CreationDate       string `json:"creationDate"`
}

// AsyncRequest is the status resource of an asynchronous job.
type AsyncRequest struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	NodeID    string        `json:"nodeId"`
	Progress  float64       `json:"progress"`
	Error     *RequestError `json:"error,omitempty"`
	Links     []Link        `json:"links"`
}

// RequestError carries the failure message of a job.
type RequestError struct {
	Message string `json:"message"`
}

// Link is a hypermedia reference on a job.
type Link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// Job statuses.
const (
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCanceled  = "CANCELED"
)

// Terminal reports whether no further status transition will occur.
func (r *AsyncRequest) Terminal() bool {
	switch strings.ToUpper(r.Status) {
	case StatusSucceeded, StatusFailed, StatusCanceled, "CANCELLED":
		return true
	}
	return false
}

// Succeeded reports a SUCCEEDED terminal status.
func (r *AsyncRequest) Succeeded() bool {
	return strings.EqualFold(r.Status, StatusSucceeded)
}

// ErrorMessage returns the job error text, if any.
func (r *AsyncRequest) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}

// SLADomain is an SLA domain reference.
type SLADomain struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reserved SLA domain ids.
const (
	SLAUnprotected = "UNPROTECTED"
	SLAInherit     = "INHERIT"
)

// SLA assignment values on database objects.
const (
	AssignmentDerived = "Derived"
	AssignmentDirect  = "Direct"
)

// Snapshot is a database backup.
type Snapshot struct {
	ID                 string `json:"id"`
	Date               string `json:"date"`
	ExpirationDate     string `json:"expirationDate"`
	IsOnDemandSnapshot bool   `json:"isOnDemandSnapshot"`
	SLAName            string `json:"slaName"`
	SLAID              string `json:"slaId"`
}

// RecoverableRange is a window that can be restored to any point in time.
type RecoverableRange struct {
	BeginTime string `json:"beginTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

// SLAAssignment is one entry of an SLA assign response.
type SLAAssignment struct {
	ID                   string `json:"id"`
	PendingSLADomainName string `json:"pendingSlaDomainName"`
}
