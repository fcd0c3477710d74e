package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"MemberSync/internal/domain"
	"MemberSync/internal/ports"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	membersTable     = "members"
	nameChangesTable = "name_changes"
)

var memberColumns = []string{
	"member_id",
	"student_number",
	"cohort_year",
	"sex",
	"base_name",
	"initiation_complete",
	"queue_number",
}

// SQLStore persists member records in SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.MemberStore = (*SQLStore)(nil)

// Open connects to the database and makes sure the schema exists.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite has a single writer.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	store := NewSQLStore(db, driver)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SQLStore{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		now:     time.Now,
	}
}

// EnsureSchema creates the tables when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert adds a record. Registration lives outside this service, so only seeding uses it.
func (s *SQLStore) Insert(ctx context.Context, rec domain.MemberRecord) error {
	query, args, err := s.builder.Insert(membersTable).
		Columns(memberColumns...).
		Values(
			rec.MemberID,
			nullString(rec.StudentNumber),
			rec.CohortYear,
			string(rec.Sex),
			rec.BaseName,
			rec.InitiationComplete,
			nullString(rec.QueueNumber),
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert member %s: %w", rec.MemberID, err)
	}
	return nil
}

// Get returns the first record matching filter.
func (s *SQLStore) Get(ctx context.Context, filter domain.Filter) (domain.MemberRecord, error) {
	where, err := filterClause(filter)
	if err != nil {
		return domain.MemberRecord{}, err
	}

	query, args, err := s.builder.Select(memberColumns...).From(membersTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return domain.MemberRecord{}, fmt.Errorf("build select: %w", err)
	}

	rec, err := scanMember(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MemberRecord{}, fmt.Errorf("member %s: %w", describe(filter), domain.ErrNotFound)
	}
	if err != nil {
		return domain.MemberRecord{}, fmt.Errorf("select member %s: %w", describe(filter), err)
	}
	return rec, nil
}

// Update applies patch to the records matching filter.
func (s *SQLStore) Update(ctx context.Context, filter domain.Filter, patch domain.Patch) error {
	where, err := filterClause(filter)
	if err != nil {
		return err
	}

	set := map[string]interface{}{}
	if patch.CohortYear != nil {
		set["cohort_year"] = *patch.CohortYear
	}
	if patch.QueueNumber != nil {
		set["queue_number"] = nullString(*patch.QueueNumber)
	}
	if patch.InitiationComplete != nil {
		set["initiation_complete"] = *patch.InitiationComplete
	}
	if patch.BaseName != nil {
		set["base_name"] = *patch.BaseName
	}
	if len(set) == 0 {
		return nil
	}

	query, args, err := s.builder.Update(membersTable).SetMap(set).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update member %s: %w", describe(filter), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update member %s: %w", describe(filter), domain.ErrNotFound)
	}
	return nil
}

// Delete removes the records matching filter and returns the first of them.
func (s *SQLStore) Delete(ctx context.Context, filter domain.Filter) (domain.MemberRecord, error) {
	rec, err := s.Get(ctx, filter)
	if err != nil {
		return domain.MemberRecord{}, err
	}
	where, _ := filterClause(filter)

	query, args, err := s.builder.Delete(membersTable).Where(where).ToSql()
	if err != nil {
		return domain.MemberRecord{}, fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.MemberRecord{}, fmt.Errorf("delete member %s: %w", describe(filter), err)
	}
	return rec, nil
}

// CreateNameChange stores a pending request.
func (s *SQLStore) CreateNameChange(ctx context.Context, memberID, requestedName string) (domain.NameChange, error) {
	change := domain.NameChange{
		MemberID:      memberID,
		RequestedName: requestedName,
		CreatedAt:     s.now().UTC().Truncate(time.Second),
	}

	query, args, err := s.builder.Insert(nameChangesTable).
		Columns("member_id", "requested_name", "created_at").
		Values(change.MemberID, change.RequestedName, change.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return domain.NameChange{}, fmt.Errorf("build name change insert: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&change.ID); err != nil {
		return domain.NameChange{}, fmt.Errorf("insert name change for %s: %w", memberID, err)
	}
	return change, nil
}

// GetNameChange loads a pending request by id.
func (s *SQLStore) GetNameChange(ctx context.Context, id int64) (domain.NameChange, error) {
	query, args, err := s.builder.Select("id", "member_id", "requested_name", "created_at").
		From(nameChangesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.NameChange{}, fmt.Errorf("build name change select: %w", err)
	}

	var change domain.NameChange
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&change.ID, &change.MemberID, &change.RequestedName, &change.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NameChange{}, fmt.Errorf("name change %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.NameChange{}, fmt.Errorf("select name change %d: %w", id, err)
	}
	return change, nil
}

// DeleteNameChange removes a pending request.
func (s *SQLStore) DeleteNameChange(ctx context.Context, id int64) error {
	query, args, err := s.builder.Delete(nameChangesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build name change delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete name change %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("name change %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanMember applies the absence policy documented on domain.MemberRecord.
func scanMember(row rowScanner) (domain.MemberRecord, error) {
	var (
		memberID      string
		studentNumber sql.NullString
		cohortYear    sql.NullInt64
		sex           sql.NullString
		baseName      sql.NullString
		complete      sql.NullBool
		queueNumber   sql.NullString
	)
	if err := row.Scan(&memberID, &studentNumber, &cohortYear, &sex, &baseName, &complete, &queueNumber); err != nil {
		return domain.MemberRecord{}, err
	}

	return domain.MemberRecord{
		MemberID:           memberID,
		StudentNumber:      studentNumber.String,
		CohortYear:         int(cohortYear.Int64),
		Sex:                domain.ParseSex(sex.String),
		BaseName:           baseName.String,
		InitiationComplete: complete.Valid && complete.Bool,
		QueueNumber:        queueNumber.String,
	}, nil
}

func filterClause(filter domain.Filter) (sq.Sqlizer, error) {
	switch {
	case filter.Empty():
		return nil, fmt.Errorf("empty member filter: %w", domain.ErrInvalidInput)
	case filter.MemberID != "" && filter.StudentNumber != "":
		return sq.Or{sq.Eq{"member_id": filter.MemberID}, sq.Eq{"student_number": filter.StudentNumber}}, nil
	case filter.MemberID != "":
		return sq.Eq{"member_id": filter.MemberID}, nil
	default:
		return sq.Eq{"student_number": filter.StudentNumber}, nil
	}
}

func describe(filter domain.Filter) string {
	switch {
	case filter.MemberID != "" && filter.StudentNumber != "":
		return fmt.Sprintf("id=%s/number=%s", filter.MemberID, filter.StudentNumber)
	case filter.MemberID != "":
		return "id=" + filter.MemberID
	default:
		return "number=" + filter.StudentNumber
	}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
