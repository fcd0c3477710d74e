package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"MemberSync/internal/domain"
	"MemberSync/internal/infrastructure/storage"
	"MemberSync/internal/ports"
	"MemberSync/internal/rank"
)

const (
	rolePre    = "role-aluviao"
	rolePost   = "role-veterano"
	roleSenior = "role-mestre"
	roleCS     = "role-cs"
	roleMC     = "role-mc"
	roleOther  = "role-other"
)

// fakeDirectory is an in-memory ports.Directory that records every mutation.
type fakeDirectory struct {
	mu        sync.Mutex
	members   []domain.Member
	listErr   error
	fetchErr  map[string]error
	nickErr   map[string]error
	mutations []string
}

var _ ports.Directory = (*fakeDirectory)(nil)

func newFakeDirectory(members ...domain.Member) *fakeDirectory {
	return &fakeDirectory{
		members:  members,
		fetchErr: map[string]error{},
		nickErr:  map[string]error{},
	}
}

func (f *fakeDirectory) ListMembers(context.Context) ([]domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, clone(m))
	}
	return out, nil
}

func (f *fakeDirectory) FetchMember(_ context.Context, id string) (domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[id]; err != nil {
		return domain.Member{}, err
	}
	if i := f.index(id); i >= 0 {
		return clone(f.members[i]), nil
	}
	return domain.Member{}, fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
}

func (f *fakeDirectory) SetNickname(_ context.Context, id, nickname, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nickErr[id]; err != nil {
		return err
	}
	i := f.index(id)
	if i < 0 {
		return fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	f.members[i].Nickname = nickname
	f.mutations = append(f.mutations, "nick "+id+" "+nickname)
	return nil
}

func (f *fakeDirectory) AddRole(_ context.Context, id, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	if !f.members[i].HasRole(roleID) {
		f.members[i].Roles = append(f.members[i].Roles, roleID)
	}
	f.mutations = append(f.mutations, "add "+id+" "+roleID)
	return nil
}

func (f *fakeDirectory) RemoveRole(_ context.Context, id, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.index(id)
	if i < 0 {
		return fmt.Errorf("member %s: %w", id, domain.ErrNotFound)
	}
	kept := []string{}
	for _, r := range f.members[i].Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.members[i].Roles = kept
	f.mutations = append(f.mutations, "remove "+id+" "+roleID)
	return nil
}

func (f *fakeDirectory) member(id string) domain.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.members[f.index(id)])
}

func (f *fakeDirectory) mutationLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.mutations...)
}

func (f *fakeDirectory) index(id string) int {
	for i, m := range f.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func clone(m domain.Member) domain.Member {
	m.Roles = append([]string(nil), m.Roles...)
	return m
}

// failingStore breaks reads with a non-NotFound error.
type failingStore struct {
	*storage.MemoryStore
	err error
}

func (f failingStore) Get(context.Context, domain.Filter) (domain.MemberRecord, error) {
	return domain.MemberRecord{}, f.err
}

func testResolver(t *testing.T) *rank.Resolver {
	t.Helper()
	r, err := rank.NewResolver(rank.DefaultTable(), rank.DefaultOverrides(rank.OverrideRoles{
		Conselheiro:   roleCS,
		MestreDeCurso: roleMC,
	}))
	require.NoError(t, err)
	return r
}

func testDeps(t *testing.T, store ports.MemberStore, dir ports.Directory) Deps {
	t.Helper()
	return Deps{
		Store:     store,
		Directory: dir,
		Resolver:  testResolver(t),
		Roles:     StageRoles{PreInitiate: rolePre, PostInitiate: rolePost, Senior: roleSenior},
	}
}

func manageable(id, username, nickname string, roles ...string) domain.Member {
	return domain.Member{ID: id, Username: username, Nickname: nickname, Roles: roles, Manageable: true}
}
