package domain

import "time"

// Sex selects the gendered column of the rank table.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// ParseSex maps a stored value onto a Sex. Anything that is not "F" is treated as male.
func ParseSex(value string) Sex {
	if value == string(SexFemale) {
		return SexFemale
	}
	return SexMale
}

// MemberRecord is the persisted state of a tracked member.
//
// Absence policy for values coming from storage:
//   - CohortYear: NULL maps to 0, which the rank resolver snaps to year 5.
//   - Sex: NULL or unknown maps to SexMale.
//   - BaseName: NULL maps to "".
//   - InitiationComplete: NULL maps to false.
//   - QueueNumber: NULL or "" means no queue number has been assigned.
type MemberRecord struct {
	MemberID           string
	StudentNumber      string
	CohortYear         int
	Sex                Sex
	BaseName           string
	InitiationComplete bool
	QueueNumber        string
}

// HasQueueNumber reports whether a queue number was assigned.
func (r MemberRecord) HasQueueNumber() bool {
	return r.QueueNumber != ""
}

// Filter selects a single record. When both fields are set, either may match.
type Filter struct {
	MemberID      string
	StudentNumber string
}

// ByMemberID filters on the directory identity.
func ByMemberID(id string) Filter {
	return Filter{MemberID: id}
}

// ByStudentNumber filters on the institutional number used by bulk inputs.
func ByStudentNumber(number string) Filter {
	return Filter{StudentNumber: number}
}

// Empty reports whether the filter would match nothing.
func (f Filter) Empty() bool {
	return f.MemberID == "" && f.StudentNumber == ""
}

// Patch is a partial update of a MemberRecord; nil fields are left untouched.
type Patch struct {
	CohortYear         *int
	QueueNumber        *string
	InitiationComplete *bool
	BaseName           *string
}

// Apply returns a copy of rec with the patch applied.
func (p Patch) Apply(rec MemberRecord) MemberRecord {
	if p.CohortYear != nil {
		rec.CohortYear = *p.CohortYear
	}
	if p.QueueNumber != nil {
		rec.QueueNumber = *p.QueueNumber
	}
	if p.InitiationComplete != nil {
		rec.InitiationComplete = *p.InitiationComplete
	}
	if p.BaseName != nil {
		rec.BaseName = *p.BaseName
	}
	return rec
}

// Member is the directory's view of a tracked member.
type Member struct {
	ID         string
	Username   string
	Nickname   string
	Roles      []string
	Bot        bool
	Manageable bool
}

// DisplayName mirrors what the directory shows: the nickname when set, the username otherwise.
func (m Member) DisplayName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.Username
}

// HasRole reports whether the member currently holds roleID.
func (m Member) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// NameChange is a pending request to change a member's base name.
type NameChange struct {
	ID            int64
	MemberID      string
	RequestedName string
	CreatedAt     time.Time
}
