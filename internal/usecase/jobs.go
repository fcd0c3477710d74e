package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"MemberSync/internal/batch"
	"MemberSync/internal/domain"
	"MemberSync/internal/ports"
	"MemberSync/internal/rank"
)

// Job names, used for reports, metrics and the CLI.
const (
	JobCohortPromotion      = "cohort-promotion"
	JobQueueNumbers         = "queue-numbers"
	JobInitiationCompletion = "initiation-completion"
	JobStructureEnforcement = "structure-enforcement"
	JobNameFix              = "name-fix"
)

const (
	reasonAutomaticFix = "Automatic name correction"
	reasonJobUpdate    = "Membership update"
)

// Jobs runs the bulk state transitions over the batch pipeline.
type Jobs struct {
	deps   Deps
	logger *slog.Logger
}

// NewJobs builds the job set.
func NewJobs(deps Deps) *Jobs {
	if deps.Runner == nil {
		deps.Runner = batch.NewRunner(deps.Logger, nil)
	}
	return &Jobs{deps: deps, logger: deps.logger()}
}

// subject is what a directory-driven lookup resolves to. fetchErr keeps a
// directory failure other than not-found so Apply can report it.
type subject struct {
	record   domain.MemberRecord
	member   domain.Member
	fetchErr error
}

// PromoteCohorts advances every member's cohort year by one.
func (j *Jobs) PromoteCohorts(ctx context.Context, sink ports.ProgressSink) (*batch.Report, error) {
	members, err := j.deps.Directory.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list members: %w", JobCohortPromotion, err)
	}

	return batch.Run(ctx, j.deps.Runner, sink, batch.Job[domain.Member, domain.MemberRecord]{
		Name:     JobCohortPromotion,
		Items:    members,
		Label:    memberLabel,
		Lookup:   j.recordOf,
		Throttle: j.deps.Throttle,
		Apply: func(ctx context.Context, m domain.Member, rec domain.MemberRecord) error {
			year := rec.CohortYear + 1
			if err := j.deps.Store.Update(ctx, domain.ByMemberID(m.ID), domain.Patch{CohortYear: &year}); err != nil {
				return fmt.Errorf("update cohort year: %w", err)
			}
			rec.CohortYear = year

			if year <= rank.MaxYear {
				if err := j.refreshDisplayName(ctx, m, rec, reasonJobUpdate); err != nil {
					return err
				}
			}
			if year >= rank.MaxYear {
				if _, err := j.setRole(ctx, m, j.deps.Roles.Senior, true); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// AssignQueueNumbers applies "id,number" lines.
func (j *Jobs) AssignQueueNumbers(ctx context.Context, input string, sink ports.ProgressSink) (*batch.Report, error) {
	lines := ParseLines(input)
	entries := make([]queueEntry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, parseQueueEntry(l))
	}

	return batch.Run(ctx, j.deps.Runner, sink, batch.Job[queueEntry, domain.MemberRecord]{
		Name:     JobQueueNumbers,
		Items:    entries,
		Label:    func(e queueEntry) string { return e.label() },
		Validate: func(e queueEntry) error { return e.err },
		Throttle: j.deps.Throttle,
		Lookup: func(ctx context.Context, e queueEntry) (domain.MemberRecord, error) {
			return j.deps.Store.Get(ctx, domain.ByStudentNumber(e.StudentNumber))
		},
		Apply: func(ctx context.Context, e queueEntry, rec domain.MemberRecord) error {
			number := e.QueueNumber
			if err := j.deps.Store.Update(ctx, domain.ByStudentNumber(e.StudentNumber), domain.Patch{QueueNumber: &number}); err != nil {
				return fmt.Errorf("update queue number: %w", err)
			}
			rec.QueueNumber = number

			if rec.InitiationComplete {
				return nil
			}
			m, err := j.deps.Directory.FetchMember(ctx, rec.MemberID)
			if err != nil {
				return err
			}
			return j.refreshDisplayName(ctx, m, rec, reasonJobUpdate)
		},
	})
}

// CompleteInitiation marks the listed student numbers as initiated.
func (j *Jobs) CompleteInitiation(ctx context.Context, input string, sink ports.ProgressSink) (*batch.Report, error) {
	return batch.Run(ctx, j.deps.Runner, sink, batch.Job[Line, subject]{
		Name:     JobInitiationCompletion,
		Items:    ParseLines(input),
		Label:    Line.label,
		Validate: func(l Line) error { return validStudentNumber(strings.TrimSpace(l.Text)) },
		Throttle: j.deps.Throttle,
		Lookup: func(ctx context.Context, l Line) (subject, error) {
			rec, err := j.deps.Store.Get(ctx, domain.ByStudentNumber(strings.TrimSpace(l.Text)))
			if err != nil {
				return subject{}, err
			}
			m, err := j.deps.Directory.FetchMember(ctx, rec.MemberID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return subject{}, fmt.Errorf("member %s is not in the directory: %w", rec.MemberID, err)
			case err != nil:
				return subject{record: rec, fetchErr: fmt.Errorf("fetch member %s: %w", rec.MemberID, err)}, nil
			}
			return subject{record: rec, member: m}, nil
		},
		Apply: func(ctx context.Context, l Line, s subject) error {
			if s.fetchErr != nil {
				return s.fetchErr
			}
			complete := true
			if err := j.deps.Store.Update(ctx, domain.ByStudentNumber(s.record.StudentNumber), domain.Patch{InitiationComplete: &complete}); err != nil {
				return fmt.Errorf("mark initiation complete: %w", err)
			}
			s.record.InitiationComplete = true

			m, err := j.setRole(ctx, s.member, j.deps.Roles.PreInitiate, false)
			if err != nil {
				return err
			}
			if m, err = j.setRole(ctx, m, j.deps.Roles.PostInitiate, true); err != nil {
				return err
			}
			if s.record.CohortYear >= rank.MaxYear {
				if m, err = j.setRole(ctx, m, j.deps.Roles.Senior, true); err != nil {
					return err
				}
			}
			return j.refreshDisplayName(ctx, m, s.record, reasonJobUpdate)
		},
	})
}

// EnforceStructure reconciles every member's nickname and senior role with
// the resolver. Running it again against unchanged state changes nothing.
func (j *Jobs) EnforceStructure(ctx context.Context, sink ports.ProgressSink) (*batch.Report, error) {
	members, err := j.deps.Directory.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list members: %w", JobStructureEnforcement, err)
	}

	return batch.Run(ctx, j.deps.Runner, sink, batch.Job[domain.Member, domain.MemberRecord]{
		Name:     JobStructureEnforcement,
		Items:    members,
		Label:    memberLabel,
		Validate: validateSweepable,
		Lookup:   j.sweepRecordOf,
		Apply: func(ctx context.Context, m domain.Member, rec domain.MemberRecord) error {
			if err := j.refreshDisplayName(ctx, m, rec, reasonAutomaticFix); err != nil {
				return err
			}
			_, err := j.setRole(ctx, m, j.deps.Roles.Senior, rank.IsSenior(rec.CohortYear))
			return err
		},
	})
}

// FixNames reconciles nicknames only.
func (j *Jobs) FixNames(ctx context.Context, sink ports.ProgressSink) (*batch.Report, error) {
	members, err := j.deps.Directory.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: list members: %w", JobNameFix, err)
	}

	return batch.Run(ctx, j.deps.Runner, sink, batch.Job[domain.Member, domain.MemberRecord]{
		Name:     JobNameFix,
		Items:    members,
		Label:    memberLabel,
		Validate: validateSweepable,
		Lookup:   j.sweepRecordOf,
		Apply: func(ctx context.Context, m domain.Member, rec domain.MemberRecord) error {
			return j.refreshDisplayName(ctx, m, rec, reasonAutomaticFix)
		},
	})
}

func (j *Jobs) recordOf(ctx context.Context, m domain.Member) (domain.MemberRecord, error) {
	return j.deps.Store.Get(ctx, domain.ByMemberID(m.ID))
}

// sweepRecordOf treats a member without a record as not sweepable rather than missing.
func (j *Jobs) sweepRecordOf(ctx context.Context, m domain.Member) (domain.MemberRecord, error) {
	rec, err := j.recordOf(ctx, m)
	if errors.Is(err, domain.ErrNotFound) {
		return rec, fmt.Errorf("%w: %w", errNoRecord, domain.ErrInvalidInput)
	}
	return rec, err
}

// refreshDisplayName sets the canonical nickname when the member is manageable
// and the nickname differs.
func (j *Jobs) refreshDisplayName(ctx context.Context, m domain.Member, rec domain.MemberRecord, reason string) error {
	if !m.Manageable {
		return nil
	}
	name := j.deps.Resolver.DisplayName(&rec, m, "", m.DisplayName())
	if name == m.Nickname {
		return nil
	}
	if err := j.deps.Directory.SetNickname(ctx, m.ID, name, reason); err != nil {
		return err
	}
	j.logger.Debug("nickname updated", "member", m.ID, "from", m.Nickname, "to", name)
	return nil
}

// setRole grants or revokes roleID when the member is not already in that
// state, and returns the member with its role list updated.
func (j *Jobs) setRole(ctx context.Context, m domain.Member, roleID string, want bool) (domain.Member, error) {
	if roleID == "" || m.HasRole(roleID) == want {
		return m, nil
	}

	roles := make([]string, 0, len(m.Roles)+1)
	if want {
		if err := j.deps.Directory.AddRole(ctx, m.ID, roleID); err != nil {
			return m, err
		}
		roles = append(roles, m.Roles...)
		roles = append(roles, roleID)
	} else {
		if err := j.deps.Directory.RemoveRole(ctx, m.ID, roleID); err != nil {
			return m, err
		}
		for _, r := range m.Roles {
			if r != roleID {
				roles = append(roles, r)
			}
		}
	}
	m.Roles = roles
	return m, nil
}

var (
	errBot           = errors.New("bot account")
	errNotManageable = errors.New("member is not manageable")
	errNoRoles       = errors.New("member holds no roles")
	errNoRecord      = errors.New("member has no record")
)

func validateSweepable(m domain.Member) error {
	switch {
	case m.Bot:
		return errBot
	case !m.Manageable:
		return errNotManageable
	case len(m.Roles) == 0:
		return errNoRoles
	default:
		return nil
	}
}

func memberLabel(m domain.Member) string {
	return m.DisplayName() + " - " + m.ID
}
