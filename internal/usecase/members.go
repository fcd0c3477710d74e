package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"MemberSync/internal/domain"
)

const reasonNameChange = "Name change approved"

// Members covers the single-member workflows: name change requests and record deletion.
type Members struct {
	deps   Deps
	logger *slog.Logger
}

// NewMembers builds the single-member workflows.
func NewMembers(deps Deps) *Members {
	return &Members{deps: deps, logger: deps.logger()}
}

// NameChangeRequest is a stored request together with the name it would produce.
type NameChangeRequest struct {
	Change  domain.NameChange
	Preview string
}

// RequestNameChange stores a pending change of the member's base name.
// A leading rank title in name is dropped.
func (m *Members) RequestNameChange(ctx context.Context, memberID, name string) (NameChangeRequest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return NameChangeRequest{}, fmt.Errorf("requested name is empty: %w", domain.ErrInvalidInput)
	}

	member, err := m.deps.Directory.FetchMember(ctx, memberID)
	if err != nil {
		return NameChangeRequest{}, fmt.Errorf("fetch member: %w", err)
	}
	rec, err := m.deps.Store.Get(ctx, domain.ByMemberID(memberID))
	if err != nil {
		return NameChangeRequest{}, fmt.Errorf("load record: %w", err)
	}

	requested := m.deps.Resolver.StripLegacyTitle(name)
	change, err := m.deps.Store.CreateNameChange(ctx, memberID, requested)
	if err != nil {
		return NameChangeRequest{}, err
	}

	preview := m.deps.Resolver.DisplayName(&rec, member, requested, member.DisplayName())
	m.logger.Info("name change requested", "id", change.ID, "member", memberID, "preview", preview)
	return NameChangeRequest{Change: change, Preview: preview}, nil
}

// AcceptNameChange persists the requested base name and applies the new nickname.
func (m *Members) AcceptNameChange(ctx context.Context, id int64) (string, error) {
	change, err := m.deps.Store.GetNameChange(ctx, id)
	if err != nil {
		return "", err
	}
	member, err := m.deps.Directory.FetchMember(ctx, change.MemberID)
	if err != nil {
		return "", fmt.Errorf("fetch member: %w", err)
	}
	if !member.Manageable {
		return "", fmt.Errorf("member %s is not manageable: %w", member.ID, domain.ErrForbidden)
	}
	rec, err := m.deps.Store.Get(ctx, domain.ByMemberID(change.MemberID))
	if err != nil {
		return "", fmt.Errorf("load record: %w", err)
	}

	name := change.RequestedName
	if err := m.deps.Store.Update(ctx, domain.ByMemberID(change.MemberID), domain.Patch{BaseName: &name}); err != nil {
		return "", fmt.Errorf("update base name: %w", err)
	}
	if err := m.deps.Store.DeleteNameChange(ctx, id); err != nil {
		return "", err
	}

	rec.BaseName = name
	display := m.deps.Resolver.DisplayName(&rec, member, "", member.DisplayName())
	if err := m.deps.Directory.SetNickname(ctx, member.ID, display, reasonNameChange); err != nil {
		return "", fmt.Errorf("apply nickname: %w", err)
	}
	m.logger.Info("name change accepted", "id", id, "member", member.ID, "name", display)
	return display, nil
}

// DeclineNameChange drops a pending request and returns the name it would have produced.
func (m *Members) DeclineNameChange(ctx context.Context, id int64) (string, error) {
	change, err := m.deps.Store.GetNameChange(ctx, id)
	if err != nil {
		return "", err
	}

	preview := change.RequestedName
	member, err := m.deps.Directory.FetchMember(ctx, change.MemberID)
	switch {
	case err == nil:
		rec, recErr := m.deps.Store.Get(ctx, domain.ByMemberID(change.MemberID))
		if recErr != nil && !errors.Is(recErr, domain.ErrNotFound) {
			return "", fmt.Errorf("load record: %w", recErr)
		}
		var recPtr *domain.MemberRecord
		if recErr == nil {
			recPtr = &rec
		}
		preview = m.deps.Resolver.DisplayName(recPtr, member, change.RequestedName, member.DisplayName())
	case !errors.Is(err, domain.ErrNotFound):
		return "", fmt.Errorf("fetch member: %w", err)
	}

	if err := m.deps.Store.DeleteNameChange(ctx, id); err != nil {
		return "", err
	}
	m.logger.Info("name change declined", "id", id, "member", change.MemberID)
	return preview, nil
}

// DeleteMember removes a record by member id or student number.
func (m *Members) DeleteMember(ctx context.Context, filter domain.Filter) (domain.MemberRecord, error) {
	if filter.Empty() {
		return domain.MemberRecord{}, fmt.Errorf("member id or student number is required: %w", domain.ErrInvalidInput)
	}
	rec, err := m.deps.Store.Delete(ctx, filter)
	if err != nil {
		return domain.MemberRecord{}, err
	}
	m.logger.Info("member deleted", "member", rec.MemberID, "student_number", rec.StudentNumber)
	return rec, nil
}
