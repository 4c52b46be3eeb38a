package cultivation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultSession is used when a caller supplies no session id.
const DefaultSession = "default"

// StatusDetected is the status of every freshly logged detection.
const StatusDetected = "Detected"

// DetectionEntry is one disease detection. Entries are never mutated after
// they are logged.
type DetectionEntry struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	PhaseIndex  int       `json:"phase_index"`
	DiseaseName string    `json:"disease_name"`
	Confidence  float64   `json:"confidence"`
	ImageRef    string    `json:"image_url,omitempty"`
	Status      string    `json:"status"`
}

// State is the persisted cultivation record of one session. History is
// ordered most recent first.
type State struct {
	SessionID         string           `json:"session_id"`
	Active            bool             `json:"active"`
	CurrentCrop       string           `json:"current_crop,omitempty"`
	CurrentPhaseIndex int              `json:"current_phase_index"`
	StartDate         time.Time        `json:"start_date"`
	LastUpdated       time.Time        `json:"last_updated"`
	DiseaseHistory    []DetectionEntry `json:"disease_history"`

	// Revision is the stored revision this value was loaded at. Zero means
	// the record has never been written.
	Revision int64 `json:"-"`
}

// Clone returns a copy whose history can be modified independently.
func (s State) Clone() State {
	s.DiseaseHistory = slices.Clone(s.DiseaseHistory)
	return s
}

// ActionKind selects how Advance moves the phase index.
type ActionKind int

const (
	ActionNext ActionKind = iota
	ActionPrevious
	ActionJump
)

func (k ActionKind) String() string {
	switch k {
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "prev"
	case ActionJump:
		return "jump"
	default:
		return "unknown"
	}
}

// Action is a phase change request.
type Action struct {
	Kind  ActionKind
	Index int
}

// Next moves one phase forward and is rejected at the final phase.
func Next() Action { return Action{Kind: ActionNext} }

// Previous moves one phase back, clamping at the first phase.
func Previous() Action { return Action{Kind: ActionPrevious} }

// JumpTo moves to an explicit phase index, rejected when out of range.
func JumpTo(i int) Action { return Action{Kind: ActionJump, Index: i} }

// ParseAction accepts "next", "prev"/"previous", or a decimal phase index.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next":
		return Next(), nil
	case "prev", "previous":
		return Previous(), nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return Action{}, fmt.Errorf("parse action %q: must be next, prev or a phase index", s)
	}
	return JumpTo(i), nil
}
