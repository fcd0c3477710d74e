package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MemberSync/internal/domain"
)

var testRoles = OverrideRoles{
	Conselheiro:     "role-cs",
	MestreDoSalgado: "role-ms",
	MestrePescador:  "role-mp",
	MestreEscrivao:  "role-me",
	MestreDeCurso:   "role-mc",
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(DefaultTable(), DefaultOverrides(testRoles))
	require.NoError(t, err)
	return r
}

func holding(roles ...string) domain.Member {
	return domain.Member{ID: "m", Roles: roles}
}

func TestTitleMatchesTableForEveryYearAndSex(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	table := DefaultTable()
	for year := MinYear; year <= MaxYear; year++ {
		for _, sex := range []domain.Sex{domain.SexMale, domain.SexFemale} {
			rec := &domain.MemberRecord{CohortYear: year, Sex: sex, InitiationComplete: true}
			assert.Equal(t, table[year].For(sex), r.Title(rec, holding()), "year %d sex %s", year, sex)
		}
	}
}

func TestTitleClampsOutOfRangeYears(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	for _, year := range []int{-3, 0, 6, 42} {
		rec := &domain.MemberRecord{CohortYear: year, Sex: domain.SexFemale, InitiationComplete: true}
		assert.Equal(t, "Mestre", r.Title(rec, nil), "year %d", year)
	}
}

func TestTitleBeforeInitiationUsesQueueMarker(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	for _, year := range []int{0, 1, 3, 5, 9} {
		rec := &domain.MemberRecord{CohortYear: year, Sex: domain.SexMale, QueueNumber: "17"}
		assert.Equal(t, "[A17]", r.Title(rec, holding("role-cs", "role-mc")))
	}

	assert.Equal(t, "[A]", r.Title(&domain.MemberRecord{CohortYear: 1}, nil))
}

func TestTitleOverridePriority(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	senior := &domain.MemberRecord{CohortYear: 5, Sex: domain.SexMale, InitiationComplete: true}
	junior := &domain.MemberRecord{CohortYear: 3, Sex: domain.SexFemale, InitiationComplete: true}

	tests := []struct {
		name string
		rec  *domain.MemberRecord
		held []string
		want string
	}{
		{"all held picks conselheiro", senior, []string{"role-mc", "role-me", "role-mp", "role-ms", "role-cs"}, "Conselheiro"},
		{"salgado beats pescador", senior, []string{"role-mp", "role-ms"}, "Mestre do Salgado"},
		{"pescador beats escrivao", senior, []string{"role-me", "role-mp"}, "Mestre Pescador"},
		{"escrivao beats curso", senior, []string{"role-mc", "role-me"}, "Mestre Escrivão"},
		{"curso for senior", senior, []string{"role-mc"}, "Mestre de Curso"},
		{"curso for junior female", junior, []string{"role-mc"}, "Varina"},
		{"curso for junior male", &domain.MemberRecord{CohortYear: 2, InitiationComplete: true}, []string{"role-mc"}, "Arrais"},
		{"unrelated role", junior, []string{"role-other"}, "Moça"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Title(tt.rec, holding(tt.held...)))
		})
	}
}

func TestOverridesWithoutRoleIDAreIgnored(t *testing.T) {
	t.Parallel()

	r, err := NewResolver(DefaultTable(), DefaultOverrides(OverrideRoles{}))
	require.NoError(t, err)

	rec := &domain.MemberRecord{CohortYear: 4, Sex: domain.SexMale, InitiationComplete: true}
	assert.Equal(t, "Marnoto", r.Title(rec, holding("")))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	rec := &domain.MemberRecord{CohortYear: 2, Sex: domain.SexMale, InitiationComplete: true, BaseName: "Zé"}

	assert.Equal(t, "Junco Zé", r.DisplayName(rec, nil, "", "ze#0001"))
	assert.Equal(t, "Junco Tó", r.DisplayName(rec, nil, "Tó", "ze#0001"))
	assert.Equal(t, "Junco Tó", r.DisplayName(rec, nil, "Marnoto Tó", "ze#0001"))
	assert.Equal(t, "Junco Tó Mestre", r.DisplayName(rec, nil, "Salineira Tó Mestre", ""))
	assert.Equal(t, "Junco Mestre", r.DisplayName(rec, nil, "Mestre", ""))

	assert.Equal(t, "Moço Velho", r.DisplayName(nil, nil, "Moço Velho", "raw"))
	assert.Equal(t, "raw", r.DisplayName(nil, nil, "", "raw"))
}

func TestStripLegacyTitleNormalizesAccents(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t)
	decomposed := "Molic\u0327o Rui"
	assert.Equal(t, "Rui", r.StripLegacyTitle(decomposed))
	assert.Equal(t, "Conselheiro Rui", r.StripLegacyTitle("Conselheiro Rui"))
}

func TestResolverDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	overrides := DefaultOverrides(testRoles)
	r, err := NewResolver(table, overrides)
	require.NoError(t, err)

	table[2] = Titles{Male: "X", Female: "Y"}
	overrides[4].Junior.Male = "Z"

	rec := domain.MemberRecord{CohortYear: 2, InitiationComplete: true, BaseName: "A"}
	before := rec
	assert.Equal(t, "Junco", r.Title(&rec, nil))
	assert.Equal(t, "Arrais", r.Title(&rec, holding("role-mc")))
	assert.Equal(t, before, rec)
}

func TestNewResolverRejectsIncompleteTable(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	delete(table, 3)
	_, err := NewResolver(table, nil)
	require.Error(t, err)

	table = DefaultTable()
	table[4] = Titles{Male: "Marnoto"}
	_, err = NewResolver(table, nil)
	require.Error(t, err)

	_, err = NewResolver(DefaultTable(), []Override{{Name: "empty"}})
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Mestre Ana", Format("Mestre", "Ana"))
	assert.Equal(t, "Ana", Format("", "Ana"))
	assert.Equal(t, "[A3]", Format("[A3]", ""))
}
