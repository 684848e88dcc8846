package domain

import "time"

// Status enums are closed sets. Adapters must map any unrecognized wire
// value to the Unknown member; detectors treat Unknown as still-in-progress,
// never as a terminal state.

type RevisionStatus string

const (
	RevisionCreated   RevisionStatus = "created"
	RevisionNoChange  RevisionStatus = "no-change"
	RevisionCommitted RevisionStatus = "committed"
	RevisionFailed    RevisionStatus = "failed"
	RevisionUnknown   RevisionStatus = "unknown"
)

type StageStatus string

const (
	StageUpdating StageStatus = "updating"
	StageDegraded StageStatus = "degraded"
	StageBuilding StageStatus = "building"
	StageReady    StageStatus = "ready"
	StageError    StageStatus = "error"
	StageHealthy  StageStatus = "healthy"
	StageUnknown  StageStatus = "unknown"
)

type BuildStatus string

const (
	BuildPending  BuildStatus = "pending"
	BuildUpdating BuildStatus = "updating"
	BuildSuccess  BuildStatus = "success"
	BuildError    BuildStatus = "error"
	BuildUnknown  BuildStatus = "unknown"
)

type RouteStatus string

const (
	RouteOnline   RouteStatus = "online"
	RouteOffline  RouteStatus = "offline"
	RoutePending  RouteStatus = "pending"
	RouteStarting RouteStatus = "starting"
	RouteError    RouteStatus = "error"
	RouteUnknown  RouteStatus = "unknown"
)

// ProjectRef identifies a project on the Deploy Manager: name plus the
// org/user filters threaded through every snapshot fetch.
type ProjectRef struct {
	Name string
	Org  string
	User string
}

// Project is one immutable point-in-time snapshot of remote state. Each
// poll produces a fresh value; nothing is patched incrementally.
type Project struct {
	Name         string
	Org          string
	Owner        string
	Description  string
	Status       string
	CreatedAt    time.Time
	LastRevision *Revision
	Stages       []Stage
	Builds       []Build
	Routes       []Route
}

type Revision struct {
	Number    int
	Status    RevisionStatus
	Author    string
	CreatedAt time.Time
	Spec      *ProjectSpec
}

// WantsBuilds reports whether the revision's spec requests image builds.
// Absence short-circuits the build-wait phase entirely.
func (r *Revision) WantsBuilds() bool {
	return r != nil && r.Spec != nil && r.Spec.Resources != nil && len(r.Spec.Resources.Builds) > 0
}

type Stage struct {
	Name         string
	Status       StageStatus
	ErrorMessage string
	UpdatedAt    time.Time
}

type Build struct {
	Name        string
	Status      BuildStatus
	Stage       string
	WorkflowRef string
	UpdatedAt   time.Time
	ImageDigest string
	CommitSHA   string
}

type Route struct {
	Name          string
	Status        RouteStatus
	URL           string
	CustomDomains []string
	Stage         string
}

// CandidateURLs lists every address the route should answer on: one per
// custom domain, then the primary URL.
func (r Route) CandidateURLs() []string {
	urls := make([]string, 0, len(r.CustomDomains)+1)
	for _, d := range r.CustomDomains {
		urls = append(urls, "https://"+d+"/")
	}
	return append(urls, r.URL)
}

// ProjectSpec is the declarative project document submitted for
// deployment. Schema validation proper happens server side; the client
// only needs enough structure to round-trip the file, overlay secrets and
// detect build requests.
type ProjectSpec struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	UserRef     string         `yaml:"userRef,omitempty" json:"userRef,omitempty"`
	MemberRef   string         `yaml:"memberRef,omitempty" json:"memberRef,omitempty"`
	Resources   *ResourcesSpec `yaml:"resources,omitempty" json:"resources,omitempty"`
}

type ResourcesSpec struct {
	Builds  []BuildSpec  `yaml:"builds,omitempty" json:"builds,omitempty"`
	Secrets []SecretSpec `yaml:"secrets,omitempty" json:"secrets,omitempty"`
	Sources []SourceSpec `yaml:"sources,omitempty" json:"sources,omitempty"`
}

type BuildSpec struct {
	Name        string `yaml:"name" json:"name"`
	Stage       string `yaml:"stage,omitempty" json:"stage,omitempty"`
	WorkflowRef string `yaml:"workflowRef,omitempty" json:"workflowRef,omitempty"`
}

type SecretSpec struct {
	Name string            `yaml:"name" json:"name"`
	Data map[string]string `yaml:"data,omitempty" json:"data,omitempty"`
}

type SourceSpec struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
}

// PatchOp is a JSON-patch operation for project updates.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Permission grants a subject access to a project. View is implied by
// change, change by delete.
type Permission struct {
	Subject string `json:"subject"`
	View    bool   `json:"view"`
	Change  bool   `json:"change"`
	Delete  bool   `json:"delete"`
}

type Confirmation struct {
	Detail string
}

type User struct {
	Username   string
	Email      string
	CurrentOrg string
}
