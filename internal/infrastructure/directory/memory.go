package directory

import (
	"context"
	"fmt"
	"sync"

	"MemberSync/internal/domain"
	"MemberSync/internal/ports"
)

// Memory is an in-process Directory for dry runs and tests. It keeps members
// in insertion order and counts every mutation.
type Memory struct {
	mu        sync.Mutex
	members   []domain.Member
	mutations int
}

var _ ports.Directory = (*Memory)(nil)

// NewMemory seeds the directory with members.
func NewMemory(members ...domain.Member) *Memory {
	d := &Memory{}
	for _, m := range members {
		d.members = append(d.members, clone(m))
	}
	return d
}

// Mutations counts successful nickname and role changes.
func (d *Memory) Mutations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mutations
}

func (d *Memory) ListMembers(context.Context) ([]domain.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Member, 0, len(d.members))
	for _, m := range d.members {
		out = append(out, clone(m))
	}
	return out, nil
}

func (d *Memory) FetchMember(_ context.Context, id string) (domain.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := d.index(id)
	if err != nil {
		return domain.Member{}, err
	}
	return clone(d.members[i]), nil
}

func (d *Memory) SetNickname(_ context.Context, id, nickname, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := d.index(id)
	if err != nil {
		return err
	}
	if !d.members[i].Manageable {
		return fmt.Errorf("set nickname of %s: %w", id, domain.ErrForbidden)
	}
	d.members[i].Nickname = nickname
	d.mutations++
	return nil
}

func (d *Memory) AddRole(_ context.Context, id, roleID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := d.index(id)
	if err != nil {
		return err
	}
	if !d.members[i].HasRole(roleID) {
		d.members[i].Roles = append(d.members[i].Roles, roleID)
	}
	d.mutations++
	return nil
}

func (d *Memory) RemoveRole(_ context.Context, id, roleID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, err := d.index(id)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(d.members[i].Roles))
	for _, r := range d.members[i].Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	d.members[i].Roles = kept
	d.mutations++
	return nil
}

func (d *Memory) index(id string) (int, error) {
	for i, m := range d.members {
		if m.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
}

func clone(m domain.Member) domain.Member {
	m.Roles = append([]string(nil), m.Roles...)
	return m
}
