package crm

import (
	"fmt"
	"strings"

	"github.com/warp/crm-engine/billing"
)

// PipelineStatus is a stage of the sales pipeline.
type PipelineStatus string

const (
	PipelineProspect    PipelineStatus = "prospect"
	PipelineR1Scheduled PipelineStatus = "r1_scheduled"
	PipelineR1Done      PipelineStatus = "r1_done"
	PipelineQualified   PipelineStatus = "qualified"
	PipelineR2Scheduled PipelineStatus = "r2_scheduled"
	PipelineR2Done      PipelineStatus = "r2_done"
	PipelineClosedWon   PipelineStatus = "closed_won"

	// Terminal losses.
	PipelineNotQualified PipelineStatus = "not_qualified"
	PipelineClosedLost   PipelineStatus = "closed_lost"
)

// PipelineStages lists the forward stages in order.
var PipelineStages = []PipelineStatus{
	PipelineProspect, PipelineR1Scheduled, PipelineR1Done, PipelineQualified,
	PipelineR2Scheduled, PipelineR2Done, PipelineClosedWon,
}

func ParsePipelineStatus(s string) (PipelineStatus, error) {
	ps := PipelineStatus(strings.ToLower(strings.TrimSpace(s)))
	if ps == "" {
		return PipelineProspect, nil
	}
	if ps == PipelineNotQualified || ps == PipelineClosedLost {
		return ps, nil
	}
	for _, stage := range PipelineStages {
		if stage == ps {
			return ps, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPipelineStatus, s)
}

// IsTerminal reports whether the contact left the pipeline.
func (p PipelineStatus) IsTerminal() bool {
	return p == PipelineClosedWon || p == PipelineNotQualified || p == PipelineClosedLost
}

// Stage is the 1-based position in PipelineStages, 0 for losses.
func (p PipelineStatus) Stage() int {
	for i, s := range PipelineStages {
		if s == p {
			return i + 1
		}
	}
	return 0
}

// PipelineChange is a requested move to a new status.
type PipelineChange struct {
	Status PipelineStatus
	Notes  string
	R1Date billing.Date
	R2Date billing.Date
}

// Validate checks that scheduling stages carry their meeting date.
func (c PipelineChange) Validate() error {
	if _, err := ParsePipelineStatus(string(c.Status)); err != nil {
		return err
	}
	switch c.Status {
	case PipelineR1Scheduled:
		if c.R1Date.IsZero() {
			return &MissingMeetingDateError{Status: c.Status, Field: "r1_date"}
		}
	case PipelineR2Scheduled:
		if c.R2Date.IsZero() {
			return &MissingMeetingDateError{Status: c.Status, Field: "r2_date"}
		}
	}
	return nil
}
