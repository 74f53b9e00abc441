package domain

import "fmt"

// Mode selects how a group of files is materialized in the target
type Mode string

const (
	// ModeCopy writes every file individually into an hour bucket
	ModeCopy Mode = "copy"
	// ModeArchive appends files into a day-named tar inside a month bucket
	ModeArchive Mode = "archive"
)

// ParseMode parses a mode name as written in config files and flags
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCopy, ModeArchive:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected copy or archive)", s)
	}
}

// Action determines whether sources are kept after materialization
type Action string

const (
	ActionCopy Action = "copy"
	ActionMove Action = "move"
)

// ParseAction parses an action name as written in config files and flags
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionCopy, ActionMove:
		return Action(s), nil
	default:
		return "", fmt.Errorf("invalid action %q (expected copy or move)", s)
	}
}

// Title returns the capitalized action name used in status messages
func (a Action) Title() string {
	switch a {
	case ActionMove:
		return "Move"
	default:
		return "Copy"
	}
}

// Outcome classifies a log entry
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
	OutcomeCritical Outcome = "critical"
)

// IsFailure reports whether the outcome counts as a failed file or group
func (o Outcome) IsFailure() bool {
	return o == OutcomeError || o == OutcomeCritical
}
