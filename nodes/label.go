package nodes

import (
	"errors"
	"fmt"
	"slices"
)

// Label names the next step chosen by the supervisor: one of the workers or
// Finish.
type Label string

// Finish ends the turn.
const Finish Label = "FINISH"

var ErrUnknownLabel = errors.New("unknown routing label")

// LabelSet is the closed set of routing labels for one graph. It is fixed at
// construction.
type LabelSet struct {
	workers []Label
}

// NewLabelSet builds the set from worker names. Names must be non-empty,
// unique, and distinct from Finish.
func NewLabelSet(workers ...Label) (LabelSet, error) {
	if len(workers) == 0 {
		return LabelSet{}, fmt.Errorf("label set needs at least one worker")
	}

	set := LabelSet{workers: make([]Label, 0, len(workers))}
	for _, w := range workers {
		switch {
		case w == "":
			return LabelSet{}, fmt.Errorf("worker label cannot be empty")
		case w == Finish:
			return LabelSet{}, fmt.Errorf("worker label %s is reserved", Finish)
		case slices.Contains(set.workers, w):
			return LabelSet{}, fmt.Errorf("duplicate worker label %s", w)
		}
		set.workers = append(set.workers, w)
	}
	return set, nil
}

// Workers returns the worker labels in construction order.
func (s LabelSet) Workers() []Label {
	return slices.Clone(s.workers)
}

// Contains reports whether raw is a member, Finish included.
func (s LabelSet) Contains(raw string) bool {
	_, err := s.Parse(raw)
	return err == nil
}

// Parse converts raw into a member label.
func (s LabelSet) Parse(raw string) (Label, error) {
	l := Label(raw)
	if l == Finish || slices.Contains(s.workers, l) {
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, raw)
}

// Strings returns the workers followed by Finish.
func (s LabelSet) Strings() []string {
	out := make([]string, 0, len(s.workers)+1)
	for _, w := range s.workers {
		out = append(out, string(w))
	}
	return append(out, string(Finish))
}
