package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tags the outcome of a single batch item.
type Status int

const (
	Success Status = iota
	InvalidInput
	NotFound
	ProcessingError
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case InvalidInput:
		return "invalid_input"
	case NotFound:
		return "not_found"
	case ProcessingError:
		return "processing_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// failureSections fixes the order and headings of the rendered report.
var failureSections = []struct {
	status  Status
	heading string
}{
	{InvalidInput, "Invalid input"},
	{NotFound, "Not found"},
	{ProcessingError, "Processing errors"},
}

// Outcome is the recorded result of one item. Index is 1-based in source order.
type Outcome struct {
	Index  int
	Label  string
	Status Status
	Reason string
}

func (o Outcome) detail() string {
	if o.Reason == "" {
		return "- " + o.Label
	}
	return "- " + o.Label + " - " + o.Reason
}

// Report aggregates the outcomes of a batch run.
type Report struct {
	RunID      uuid.UUID
	Job        string
	Total      int
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
}

// Count returns how many outcomes carry status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Clean reports whether every failure category is empty.
func (r *Report) Clean() bool {
	for _, section := range failureSections {
		if r.Count(section.status) > 0 {
			return false
		}
	}
	return true
}

// Summary is a one-line, human readable result.
func (r *Report) Summary() string {
	if r.Clean() {
		return fmt.Sprintf("%s: %d items processed, no errors.", r.Job, r.Total)
	}
	return fmt.Sprintf("%s: %d succeeded, %d invalid, %d not found, %d failed. Details are in the attachment.",
		r.Job,
		r.Count(Success),
		r.Count(InvalidInput),
		r.Count(NotFound),
		r.Count(ProcessingError))
}

// Markdown renders one section per non-empty failure category, in the order
// invalid input, not found, processing errors. A clean report renders as "".
func (r *Report) Markdown() string {
	sections := make([]string, 0, len(failureSections))
	for _, section := range failureSections {
		var lines []string
		for _, o := range r.Outcomes {
			if o.Status == section.status {
				lines = append(lines, o.detail())
			}
		}
		if len(lines) == 0 {
			continue
		}
		sections = append(sections, "## "+section.heading+"\n"+strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// Attachment returns the rendered report and true when there is something worth attaching.
func (r *Report) Attachment() ([]byte, bool) {
	if r.Clean() {
		return nil, false
	}
	return []byte(r.Markdown()), true
}
