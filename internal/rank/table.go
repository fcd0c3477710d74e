package rank

import (
	"fmt"

	"MemberSync/internal/domain"
)

const (
	// MinYear is the first cohort year.
	MinYear = 1
	// MaxYear is the senior year; out-of-range years snap to it.
	MaxYear = 5
)

// Titles holds the male and female title for a single cohort year.
type Titles struct {
	Male   string `yaml:"M"`
	Female string `yaml:"F"`
}

// For picks the title matching sex.
func (t Titles) For(sex domain.Sex) string {
	if sex == domain.SexFemale {
		return t.Female
	}
	return t.Male
}

// Table maps a cohort year to its titles.
type Table map[int]Titles

// DefaultTable returns a fresh copy of the stock rank table.
func DefaultTable() Table {
	return Table{
		1: {Male: "Moliço", Female: "Moliço"},
		2: {Male: "Junco", Female: "Caniça"},
		3: {Male: "Moço", Female: "Moça"},
		4: {Male: "Marnoto", Female: "Salineira"},
		5: {Male: "Mestre", Female: "Mestre"},
	}
}

// Validate checks that every year in [MinYear, MaxYear] has both titles.
func (t Table) Validate() error {
	for year := MinYear; year <= MaxYear; year++ {
		titles, ok := t[year]
		if !ok {
			return fmt.Errorf("rank table: year %d missing", year)
		}
		if titles.Male == "" || titles.Female == "" {
			return fmt.Errorf("rank table: year %d needs both M and F titles", year)
		}
	}
	return nil
}

// ClampYear snaps any year outside [MinYear, MaxYear] to MaxYear.
func ClampYear(year int) int {
	if year < MinYear || year > MaxYear {
		return MaxYear
	}
	return year
}

// IsSenior reports whether year resolves to the senior year.
func IsSenior(year int) bool {
	return ClampYear(year) == MaxYear
}

// Override is a role-backed title that replaces the cohort title.
// When Junior is set, it supplies the title for members below MaxYear.
type Override struct {
	Name   string
	RoleID string
	Title  string
	Junior *Titles
}

func (o Override) titleFor(year int, sex domain.Sex) string {
	if o.Junior != nil && year < MaxYear {
		return o.Junior.For(sex)
	}
	return o.Title
}

// OverrideRoles carries the directory role ids backing each override.
type OverrideRoles struct {
	Conselheiro     string
	MestreDoSalgado string
	MestrePescador  string
	MestreEscrivao  string
	MestreDeCurso   string
}

// DefaultOverrides lists the overrides in priority order, highest first.
func DefaultOverrides(roles OverrideRoles) []Override {
	return []Override{
		{Name: "conselheiro", RoleID: roles.Conselheiro, Title: "Conselheiro"},
		{Name: "mestre-do-salgado", RoleID: roles.MestreDoSalgado, Title: "Mestre do Salgado"},
		{Name: "mestre-pescador", RoleID: roles.MestrePescador, Title: "Mestre Pescador"},
		{Name: "mestre-escrivao", RoleID: roles.MestreEscrivao, Title: "Mestre Escrivão"},
		{
			Name:   "mestre-de-curso",
			RoleID: roles.MestreDeCurso,
			Title:  "Mestre de Curso",
			Junior: &Titles{Male: "Arrais", Female: "Varina"},
		},
	}
}
