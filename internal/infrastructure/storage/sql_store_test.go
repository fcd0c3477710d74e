package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MemberSync/internal/domain"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "members.db")
	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "members.db")
	for i := 0; i < 3; i++ {
		s, err := Open(context.Background(), DriverSQLite, path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, s.Close())
	}
}

func TestSQLStoreGetAndUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	rec := domain.MemberRecord{
		MemberID:      "100",
		StudentNumber: "12345",
		CohortYear:    2,
		Sex:           domain.SexFemale,
		BaseName:      "Ana",
	}
	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.Get(ctx, domain.ByStudentNumber("12345"))
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.False(t, got.HasQueueNumber())

	year := 3
	queue := "42"
	complete := true
	require.NoError(t, s.Update(ctx, domain.ByMemberID("100"), domain.Patch{
		CohortYear:         &year,
		QueueNumber:        &queue,
		InitiationComplete: &complete,
	}))

	got, err = s.Get(ctx, domain.ByMemberID("100"))
	require.NoError(t, err)
	assert.Equal(t, 3, got.CohortYear)
	assert.Equal(t, "42", got.QueueNumber)
	assert.True(t, got.InitiationComplete)
	assert.Equal(t, "Ana", got.BaseName)
}

func TestSQLStoreNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Get(ctx, domain.ByStudentNumber("99999"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	year := 1
	err = s.Update(ctx, domain.ByMemberID("nobody"), domain.Patch{CohortYear: &year})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Delete(ctx, domain.ByMemberID("nobody"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Get(ctx, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSQLStoreAbsencePolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.db.ExecContext(ctx, `INSERT INTO members (member_id) VALUES ('200')`)
	require.NoError(t, err)

	got, err := s.Get(ctx, domain.ByMemberID("200"))
	require.NoError(t, err)
	assert.Equal(t, domain.MemberRecord{MemberID: "200", Sex: domain.SexMale}, got)
}

func TestSQLStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Insert(ctx, domain.MemberRecord{MemberID: "1", StudentNumber: "11111"}))
	require.NoError(t, s.Insert(ctx, domain.MemberRecord{MemberID: "2", StudentNumber: "22222"}))

	deleted, err := s.Delete(ctx, domain.Filter{MemberID: "missing", StudentNumber: "22222"})
	require.NoError(t, err)
	assert.Equal(t, "2", deleted.MemberID)

	_, err = s.Get(ctx, domain.ByMemberID("2"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, domain.ByMemberID("1"))
	assert.NoError(t, err)
}

func TestSQLStoreNameChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	first, err := s.CreateNameChange(ctx, "100", "Ana Maria")
	require.NoError(t, err)
	second, err := s.CreateNameChange(ctx, "100", "Ana")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, err := s.GetNameChange(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", got.RequestedName)
	assert.True(t, got.CreatedAt.Equal(first.CreatedAt))

	require.NoError(t, s.DeleteNameChange(ctx, first.ID))
	_, err = s.GetNameChange(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteNameChange(ctx, first.ID), domain.ErrNotFound)
}

func TestNewSQLStorePlaceholders(t *testing.T) {
	t.Parallel()

	pg := NewSQLStore(&sql.DB{}, DriverPostgres)
	query, _, err := pg.builder.Select("member_id").From(membersTable).Where("member_id = ?", "1").ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "$1")

	lite := NewSQLStore(&sql.DB{}, DriverSQLite)
	query, _, err = lite.builder.Select("member_id").From(membersTable).Where("member_id = ?", "1").ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "?")
}
