package graph

import "github.com/tailored-agentic-units/concierge/session"

// Edge is a transition between nodes. Edges leaving a node are evaluated in
// insertion order and the first whose predicate holds is taken.
type Edge struct {
	From string
	To   string

	// Name describes the predicate in events (e.g. "route=CartManager").
	Name string

	// Predicate decides whether the edge is taken. Nil always transitions.
	Predicate Predicate
}

// Predicate inspects the session after a node ran.
type Predicate func(sess session.Session) bool

// Always returns a predicate that always holds.
func Always() Predicate {
	return func(session.Session) bool { return true }
}

// RouteIs holds when the session's current route equals label.
func RouteIs(label string) Predicate {
	return func(sess session.Session) bool {
		return sess.Route() == label
	}
}

// LastHasToolCalls holds when the most recent message requests tools.
func LastHasToolCalls() Predicate {
	return func(sess session.Session) bool {
		last, ok := sess.Last()
		return ok && last.HasToolCalls()
	}
}

// Not inverts a predicate.
func Not(predicate Predicate) Predicate {
	return func(sess session.Session) bool {
		return !predicate(sess)
	}
}

// And holds when every predicate holds.
func And(predicates ...Predicate) Predicate {
	return func(sess session.Session) bool {
		for _, p := range predicates {
			if !p(sess) {
				return false
			}
		}
		return true
	}
}

// Or holds when at least one predicate holds.
func Or(predicates ...Predicate) Predicate {
	return func(sess session.Session) bool {
		for _, p := range predicates {
			if p(sess) {
				return true
			}
		}
		return false
	}
}
