// Package domain provides core business rules for the lead lifecycle.
package domain

import "fmt"

// Status is the lifecycle position of a lead.
type Status string

const (
	StatusNew         Status = "new"
	StatusPitched     Status = "pitched"
	StatusFollowedUp1 Status = "followed_up_1"
	StatusFollowedUp2 Status = "followed_up_2"
	StatusFollowedUp3 Status = "followed_up_3"
	StatusReplied     Status = "replied"
	StatusArchived    Status = "archived"
	StatusConverted   Status = "converted"
)

// FollowupStageCount is the number of follow-ups after the initial pitch.
const FollowupStageCount = 3

// sequence is the forward-only outreach chain. Terminal statuses are not part of it.
var sequence = []Status{StatusNew, StatusPitched, StatusFollowedUp1, StatusFollowedUp2, StatusFollowedUp3}

var terminalStatuses = map[Status]bool{
	StatusReplied:   true,
	StatusArchived:  true,
	StatusConverted: true,
}

// validTransitions lists every status change the system may perform.
// Terminal statuses have two exits: an archived prospect who answers has replied,
// and a prospect who replied can be converted by the operator.
var validTransitions = map[Status][]Status{
	StatusNew:         {StatusPitched, StatusReplied, StatusArchived, StatusConverted},
	StatusPitched:     {StatusFollowedUp1, StatusReplied, StatusArchived, StatusConverted},
	StatusFollowedUp1: {StatusFollowedUp2, StatusReplied, StatusArchived, StatusConverted},
	StatusFollowedUp2: {StatusFollowedUp3, StatusReplied, StatusArchived, StatusConverted},
	StatusFollowedUp3: {StatusReplied, StatusArchived, StatusConverted},
	StatusArchived:    {StatusReplied},
	StatusReplied:     {StatusConverted},
}

// ParseStatus validates raw input.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown lead status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if terminalStatuses[s] {
		return true
	}
	return s.rank() >= 0
}

// IsTerminal reports whether no automated outreach may act on a lead in this status.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

func (s Status) rank() int {
	for i, candidate := range sequence {
		if candidate == s {
			return i
		}
	}
	return -1
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every status from which a lead may move to target.
// Repositories use it to make a status change conditional in a single UPDATE.
func SourcesFor(target Status) []Status {
	var out []Status
	for _, from := range append(append([]Status{}, sequence...), StatusReplied, StatusArchived, StatusConverted) {
		if CanTransition(from, target) {
			out = append(out, from)
		}
	}
	return out
}

// FollowupStatus maps a follow-up stage (1..3) to the status it produces.
func FollowupStatus(stage int) (Status, error) {
	if stage < 1 || stage > FollowupStageCount {
		return "", fmt.Errorf("follow-up stage %d out of range", stage)
	}
	return sequence[stage+1], nil
}

// FollowupSources lists the statuses a lead may be in when follow-up stage fires.
// A stage never fires for an unpitched lead and never moves a lead backwards.
func FollowupSources(stage int) []Status {
	target, err := FollowupStatus(stage)
	if err != nil {
		return nil
	}
	return append([]Status(nil), sequence[1:target.rank()]...)
}

// AlreadyReached reports whether a lead in status s has passed or reached target
// along the outreach sequence.
func (s Status) AlreadyReached(target Status) bool {
	r := s.rank()
	return r >= 0 && r >= target.rank()
}

// AllStatuses lists every status in pipeline order.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusPitched, StatusFollowedUp1, StatusFollowedUp2, StatusFollowedUp3,
		StatusReplied, StatusConverted, StatusArchived}
}
