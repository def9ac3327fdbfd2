package model

import "time"

type Platform string

const (
	PlatformGitHub  Platform = "github"
	PlatformGitLab  Platform = "gitlab"
	PlatformUnknown Platform = "unknown"
)

type PipelineStatus string

const (
	PipelineSuccess PipelineStatus = "success"
	PipelineFailed  PipelineStatus = "failed"
	PipelineRunning PipelineStatus = "running"
	PipelinePending PipelineStatus = "pending"
	PipelineNone    PipelineStatus = "none"
	PipelineUnknown PipelineStatus = "unknown"
)

type ChangeKind string

const (
	ChangeModified  ChangeKind = "modified"
	ChangeAdded     ChangeKind = "added"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeRenamed   ChangeKind = "renamed"
	ChangeCopied    ChangeKind = "copied"
	ChangeUntracked ChangeKind = "untracked"
	ChangeOther     ChangeKind = "other"
)

// MemberRepo is one constituent repository of the virtual workspace.
type MemberRepo struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	RemoteURL string   `json:"remote_url"`
	Platform  Platform `json:"platform"`
}

type FileChange struct {
	Path string     `json:"path"`
	Kind ChangeKind `json:"kind"`
}

type ChangeSummary struct {
	Modified  int `json:"modified"`
	Added     int `json:"added"`
	Deleted   int `json:"deleted"`
	Renamed   int `json:"renamed"`
	Copied    int `json:"copied"`
	Untracked int `json:"untracked"`
	Other     int `json:"other"`
}

func (s ChangeSummary) Total() int {
	return s.Modified + s.Added + s.Deleted + s.Renamed + s.Copied + s.Untracked + s.Other
}

// BranchState is recomputed on every inspection and never cached.
type BranchState struct {
	Branch   string        `json:"branch"`
	Detached bool          `json:"detached"`
	Upstream string        `json:"upstream,omitempty"`
	Ahead    int           `json:"ahead"`
	Behind   int           `json:"behind"`
	Changes  []FileChange  `json:"changes,omitempty"`
	Summary  ChangeSummary `json:"summary"`
}

func (b BranchState) Dirty() bool {
	return b.Summary.Total() > 0
}

// PullRequestRecord is created once per successful publish and is immutable
// afterwards except for description updates.
type PullRequestRecord struct {
	Repo         string    `json:"repo"`
	SourceBranch string    `json:"source_branch"`
	TargetBranch string    `json:"target_branch"`
	Platform     Platform  `json:"platform"`
	URL          string    `json:"url"`
	Number       int       `json:"number"`
	CreatedAt    time.Time `json:"created_at"`
}

// TaskGroup is a correlation result, not a stored entity. Its records belong
// to distinct repos and share one task name.
type TaskGroup struct {
	TaskName string              `json:"task_name"`
	Records  []PullRequestRecord `json:"records"`
}

type ApprovalStatus struct {
	Record   PullRequestRecord `json:"record"`
	Approved bool              `json:"approved"`
	Pipeline PipelineStatus    `json:"pipeline"`
}
