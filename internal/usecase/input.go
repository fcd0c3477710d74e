package usecase

import (
	"fmt"
	"strings"
)

// Line is one non-blank physical line of a line-delimited input.
type Line struct {
	Number int
	Text   string
}

func (l Line) label() string {
	return fmt.Sprintf("Line %d - %s", l.Number, l.Text)
}

// ParseLines splits text on newlines, trims a trailing carriage return and
// drops blank lines. Numbers keep counting blank lines so reports point at
// the physical line.
func ParseLines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Text: l})
	}
	return lines
}

// queueEntry is a parsed "id,number" line. err is set when the line is malformed.
type queueEntry struct {
	Line
	StudentNumber string
	QueueNumber   string
	err           error
}

func parseQueueEntry(l Line) queueEntry {
	entry := queueEntry{Line: l}
	id, number, found := strings.Cut(l.Text, ",")
	if !found {
		entry.err = fmt.Errorf("expected id,number")
		return entry
	}
	// Extra fields after the queue number are ignored.
	number, _, _ = strings.Cut(number, ",")

	entry.StudentNumber = strings.TrimSpace(id)
	entry.QueueNumber = strings.TrimSpace(number)
	switch {
	case entry.StudentNumber == "":
		entry.err = fmt.Errorf("missing id")
	case entry.QueueNumber == "":
		entry.err = fmt.Errorf("missing queue number")
	}
	return entry
}

// validStudentNumber accepts 5 or 6 ASCII digits.
func validStudentNumber(id string) error {
	if len(id) <= 4 || len(id) >= 7 {
		return fmt.Errorf("expected 5 or 6 digits, got %d characters", len(id))
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("not numeric")
		}
	}
	return nil
}
