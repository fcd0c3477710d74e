package ports

import (
	"context"
	"time"

	"MemberSync/internal/domain"
)

// MemberStore persists member records and pending name changes.
// Get returns an error wrapping domain.ErrNotFound when nothing matches.
type MemberStore interface {
	Get(ctx context.Context, filter domain.Filter) (domain.MemberRecord, error)
	Update(ctx context.Context, filter domain.Filter, patch domain.Patch) error
	Delete(ctx context.Context, filter domain.Filter) (domain.MemberRecord, error)

	CreateNameChange(ctx context.Context, memberID, requestedName string) (domain.NameChange, error)
	GetNameChange(ctx context.Context, id int64) (domain.NameChange, error)
	DeleteNameChange(ctx context.Context, id int64) error
}

// Directory reads and mutates members of the external community directory.
// Failures wrap domain.ErrNotFound, domain.ErrForbidden or domain.ErrRateLimited when classifiable.
type Directory interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
	FetchMember(ctx context.Context, id string) (domain.Member, error)
	SetNickname(ctx context.Context, id, nickname, reason string) error
	AddRole(ctx context.Context, id, roleID string) error
	RemoveRole(ctx context.Context, id, roleID string) error
}

// Progress is a live status update for a running batch.
type Progress struct {
	Job   string
	Index int
	Total int
	Label string
}

// ProgressSink publishes live status. Publishing is best-effort.
type ProgressSink interface {
	Publish(ctx context.Context, p Progress) error
}

// ReportPublisher hands a finished report to the presentation layer.
type ReportPublisher interface {
	PublishReport(ctx context.Context, title, summary string, clean bool, attachment []byte) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
