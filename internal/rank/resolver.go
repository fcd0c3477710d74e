package rank

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"MemberSync/internal/domain"
)

// RoleHolder answers whether a member currently holds a role.
// domain.Member satisfies it.
type RoleHolder interface {
	HasRole(roleID string) bool
}

// Resolver computes canonical titles and display names. It holds private copies
// of its table and overrides and never mutates its inputs.
type Resolver struct {
	table     [MaxYear + 1]Titles
	overrides []Override
	legacy    map[string]struct{}
}

// NewResolver validates table and copies it together with overrides.
func NewResolver(table Table, overrides []Override) (*Resolver, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{legacy: map[string]struct{}{}}
	for year := MinYear; year <= MaxYear; year++ {
		titles := table[year]
		r.table[year] = titles
		r.legacy[norm.NFC.String(titles.Male)] = struct{}{}
		r.legacy[norm.NFC.String(titles.Female)] = struct{}{}
	}

	r.overrides = make([]Override, 0, len(overrides))
	for _, o := range overrides {
		if o.Title == "" {
			return nil, fmt.Errorf("rank override %q: title is required", o.Name)
		}
		if o.Junior != nil {
			junior := *o.Junior
			o.Junior = &junior
		}
		r.overrides = append(r.overrides, o)
	}
	return r, nil
}

// Title returns the canonical title for rec. A nil record has no title.
// Members who have not completed initiation get the queue marker and
// overrides are never consulted for them.
func (r *Resolver) Title(rec *domain.MemberRecord, held RoleHolder) string {
	if rec == nil {
		return ""
	}
	if !rec.InitiationComplete {
		return "[A" + rec.QueueNumber + "]"
	}

	year := ClampYear(rec.CohortYear)
	title := r.table[year].For(rec.Sex)
	if held == nil {
		return title
	}
	for _, o := range r.overrides {
		if o.RoleID != "" && held.HasRole(o.RoleID) {
			return o.titleFor(year, rec.Sex)
		}
	}
	return title
}

// DisplayName composes the full display name for a member.
// Without a record it falls back to nameOverride, then to fallback.
func (r *Resolver) DisplayName(rec *domain.MemberRecord, held RoleHolder, nameOverride, fallback string) string {
	if rec == nil {
		if nameOverride != "" {
			return nameOverride
		}
		return fallback
	}

	name := rec.BaseName
	if nameOverride != "" {
		name = r.StripLegacyTitle(nameOverride)
	}
	return Format(r.Title(rec, held), name)
}

// StripLegacyTitle drops a leading rank title word from name, once.
func (r *Resolver) StripLegacyTitle(name string) string {
	name = strings.TrimSpace(name)
	head, rest, found := strings.Cut(name, " ")
	if !found {
		return name
	}
	if _, ok := r.legacy[norm.NFC.String(head)]; !ok {
		return name
	}
	if rest = strings.TrimSpace(rest); rest == "" {
		return name
	}
	return rest
}

// Format joins a title and a name with a single space.
func Format(title, name string) string {
	switch {
	case title == "":
		return name
	case name == "":
		return title
	default:
		return title + " " + name
	}
}
