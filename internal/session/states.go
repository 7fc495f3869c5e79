package session

import "strings"

// State represents the lifecycle of an import session.
type State string

const (
	StateIdle               State = "idle"
	StateAnalyzingROI       State = "analyzing_roi"
	StateAwaitingManualCrop State = "awaiting_manual_crop"
	StateMappingGrid        State = "mapping_grid"
	StateExtractingRegions  State = "extracting_regions"
	StateRecognizing        State = "recognizing"
	StateReviewing          State = "reviewing"
	StateComplete           State = "complete"
	StateError              State = "error"
)

var allStates = []State{
	StateIdle,
	StateAnalyzingROI,
	StateAwaitingManualCrop,
	StateMappingGrid,
	StateExtractingRegions,
	StateRecognizing,
	StateReviewing,
	StateComplete,
	StateError,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// successors is the explicit adjacency table. StateError is reachable from
// every non-terminal state and is listed per entry rather than special-cased
// so the table reads as the single source of truth.
var successors = map[State][]State{
	StateIdle:               {StateAnalyzingROI, StateAwaitingManualCrop, StateError},
	StateAnalyzingROI:       {StateMappingGrid, StateAwaitingManualCrop, StateError},
	StateAwaitingManualCrop: {StateMappingGrid, StateError},
	StateMappingGrid:        {StateExtractingRegions, StateAwaitingManualCrop, StateError},
	StateExtractingRegions:  {StateRecognizing, StateAwaitingManualCrop, StateError},
	StateRecognizing:        {StateReviewing, StateComplete, StateAwaitingManualCrop, StateError},
	StateReviewing:          {StateComplete, StateError},
	StateComplete:           {},
	StateError:              {},
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// CanTransition reports whether to is in from's allowed-successor set.
func CanTransition(from, to State) bool {
	for _, next := range successors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns a copy of from's allowed-successor set.
func Successors(from State) []State {
	next := successors[from]
	cp := make([]State, len(next))
	copy(cp, next)
	return cp
}

// Terminal reports whether a state ends the session.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// AwaitingInput reports whether the session is parked waiting on the
// external manual-intervention UI.
func (s State) AwaitingInput() bool {
	return s == StateAwaitingManualCrop || s == StateReviewing
}
