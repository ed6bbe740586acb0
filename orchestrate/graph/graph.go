// Package graph drives a turn through a directed graph of nodes that share
// one session. Edges carry predicates over the session; the first edge whose
// predicate holds is taken. Execution stops at an exit point, on a node
// error, on cancellation, or when the step ceiling is exceeded.
//
//	g, err := graph.New(config.DefaultGraphConfig("concierge"))
//	g.AddNode("supervisor", supervisor)
//	g.AddNode("search", worker)
//	g.AddNode("finish", graph.NodeFunc(func(context.Context, session.Session) error { return nil }))
//	g.AddEdge("supervisor", "search", graph.RouteIs("ProductSearch"))
//	g.AddEdge("supervisor", "finish", graph.RouteIs("FINISH"))
//	g.AddEdge("search", "supervisor", nil)
//	g.SetEntryPoint("supervisor")
//	g.SetExitPoint("finish")
//	run, err := g.Execute(ctx, sess)
package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/orchestrate/config"
	"github.com/tailored-agentic-units/concierge/session"
)

// Run summarises one execution.
type Run struct {
	// ID is the run identifier. It equals the session id.
	ID string
	// Path lists the visited nodes in order.
	Path []string
	// Steps is the number of node executions.
	Steps int
}

// Graph is a directed graph of nodes. Build it fully before the first
// Execute; the structure is not safe to modify concurrently with execution.
type Graph struct {
	name          string
	nodes         map[string]Node
	edges         map[string][]Edge
	entryPoint    string
	exitPoints    map[string]bool
	maxIterations int
	observer      observability.Observer

	checkpointStore     CheckpointStore
	checkpointInterval  int
	preserveCheckpoints bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithObserver overrides the observer named in the configuration.
func WithObserver(obs observability.Observer) Option {
	return func(g *Graph) {
		g.observer = obs
	}
}

// WithCheckpointStore sets the checkpoint store. Checkpoints are only written
// when the configured interval is positive.
func WithCheckpointStore(store CheckpointStore) Option {
	return func(g *Graph) {
		g.checkpointStore = store
	}
}

// New creates a graph from configuration. The observer is resolved from the
// observability registry unless WithObserver is given. When checkpoints are
// enabled and no store is given, an in-memory store is used.
func New(cfg config.GraphConfig, opts ...Option) (*Graph, error) {
	g := &Graph{
		name:                cfg.Name,
		nodes:               make(map[string]Node),
		edges:               make(map[string][]Edge),
		exitPoints:          make(map[string]bool),
		maxIterations:       cfg.MaxIterations,
		checkpointInterval:  cfg.Checkpoint.Interval,
		preserveCheckpoints: cfg.Checkpoint.Preserve,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.observer == nil {
		observer, err := observability.Named(cfg.Observer, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		g.observer = observer
	}

	if g.maxIterations <= 0 {
		g.maxIterations = config.DefaultMaxIterations
	}

	if g.checkpointInterval > 0 && g.checkpointStore == nil {
		g.checkpointStore = NewMemoryStore()
	}

	return g, nil
}

// Name returns the graph identifier used as the event source.
func (g *Graph) Name() string {
	return g.name
}

// MaxIterations returns the step ceiling.
func (g *Graph) MaxIterations() int {
	return g.maxIterations
}

// AddNode registers a node. Names must be unique.
func (g *Graph) AddNode(name string, node Node) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	if node == nil {
		return fmt.Errorf("node cannot be nil")
	}

	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("node %s already exists", name)
	}

	g.nodes[name] = node
	return nil
}

// AddEdge creates a transition. Both nodes must exist. A nil predicate
// always transitions.
func (g *Graph) AddEdge(from, to string, predicate Predicate) error {
	return g.AddNamedEdge(from, to, "", predicate)
}

// AddNamedEdge is AddEdge with a predicate name reported in events.
func (g *Graph) AddNamedEdge(from, to, name string, predicate Predicate) error {
	if from == "" {
		return fmt.Errorf("from node cannot be empty")
	}

	if to == "" {
		return fmt.Errorf("to node cannot be empty")
	}

	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("from node %s does not exist", from)
	}

	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("to node %s does not exist", to)
	}

	g.edges[from] = append(g.edges[from], Edge{
		From:      from,
		To:        to,
		Name:      name,
		Predicate: predicate,
	})
	return nil
}

// SetEntryPoint defines the starting node. Only one entry point is allowed.
func (g *Graph) SetEntryPoint(node string) error {
	if node == "" {
		return fmt.Errorf("entry point cannot be empty")
	}

	if g.entryPoint != "" {
		return fmt.Errorf("entry point already set to %s", g.entryPoint)
	}

	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("entry point node %s does not exist", node)
	}

	g.entryPoint = node
	return nil
}

// SetExitPoint marks a terminal node. Multiple exit points are allowed.
func (g *Graph) SetExitPoint(node string) error {
	if node == "" {
		return fmt.Errorf("exit point cannot be empty")
	}

	if _, exists := g.nodes[node]; !exists {
		return fmt.Errorf("exit point node %s does not exist", node)
	}

	g.exitPoints[node] = true
	return nil
}

// Validate checks that the graph has nodes, an entry point, and at least one
// exit point. Execute calls it before running.
func (g *Graph) Validate() error {
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	if g.entryPoint == "" {
		return fmt.Errorf("entry point not set")
	}

	if len(g.exitPoints) == 0 {
		return fmt.Errorf("no exit points set")
	}

	return nil
}

// Execute runs the graph from the entry point over sess.
//
// The returned Run is populated even on failure. Failures are
// *ExecutionError values wrapping the cause: the node's error, a context
// error, ErrNoTransition, or ErrStepLimit.
func (g *Graph) Execute(ctx context.Context, sess session.Session) (Run, error) {
	return g.execute(ctx, sess, g.entryPoint, Run{ID: sess.ID()})
}

// Resume continues a run from its last checkpoint. The session is restored
// from the snapshot and execution continues at the node following the
// checkpointed one. Steps already taken count toward the ceiling.
func (g *Graph) Resume(ctx context.Context, runID string) (session.Session, Run, error) {
	if g.checkpointStore == nil {
		return nil, Run{}, ErrCheckpointDisabled
	}

	cp, err := g.checkpointStore.Load(ctx, runID)
	if err != nil {
		return nil, Run{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	observability.Emit(ctx, g.observer, EventCheckpointLoad, observability.LevelInfo, g.name, map[string]any{
		observability.KeyNode: cp.Node,
		"run_id":              runID,
	})

	sess := session.Restore(cp.Session)
	next, err := g.findNextNode(cp.Node, sess)
	if err != nil {
		return sess, Run{ID: runID, Path: cp.Path, Steps: cp.Steps}, err
	}

	observability.Emit(ctx, g.observer, EventCheckpointResume, observability.LevelInfo, g.name, map[string]any{
		"checkpoint_node": cp.Node,
		"resume_node":     next,
		"run_id":          runID,
	})

	run, err := g.execute(ctx, sess, next, Run{ID: runID, Path: slices.Clone(cp.Path), Steps: cp.Steps})
	return sess, run, err
}

func (g *Graph) execute(ctx context.Context, sess session.Session, start string, run Run) (Run, error) {
	if err := g.Validate(); err != nil {
		return run, fmt.Errorf("graph validation failed: %w", err)
	}

	observability.Emit(ctx, g.observer, EventGraphStart, observability.LevelInfo, g.name, map[string]any{
		"entry_point": start,
		"run_id":      run.ID,
		"max_steps":   g.maxIterations,
	})

	fail := func(node string, err error) (Run, error) {
		return run, &ExecutionError{Node: node, Path: slices.Clone(run.Path), Err: err}
	}

	visited := make(map[string]int)
	for _, n := range run.Path {
		visited[n]++
	}

	current := start
	for {
		if err := ctx.Err(); err != nil {
			return fail(current, fmt.Errorf("execution cancelled: %w", err))
		}

		if run.Steps >= g.maxIterations {
			observability.Emit(ctx, g.observer, EventStepLimit, observability.LevelError, g.name, map[string]any{
				observability.KeyNode: current,
				"steps":               run.Steps,
			})
			return fail(current, fmt.Errorf("%w (%d)", ErrStepLimit, g.maxIterations))
		}

		node, exists := g.nodes[current]
		if !exists {
			return fail(current, fmt.Errorf("node %s not found", current))
		}

		run.Steps++
		run.Path = append(run.Path, current)
		visited[current]++

		if visited[current] > 1 {
			observability.Emit(ctx, g.observer, EventCycleDetected, observability.LevelVerbose, g.name, map[string]any{
				observability.KeyNode: current,
				"visit_count":         visited[current],
				"step":                run.Steps,
			})
		}

		observability.Emit(ctx, g.observer, EventNodeStart, observability.LevelVerbose, g.name, map[string]any{
			observability.KeyNode: current,
			"step":                run.Steps,
			"messages":            sess.Len(),
		})

		began := time.Now()
		err := node.Execute(ctx, sess)

		complete := map[string]any{
			observability.KeyNode:     current,
			"step":                    run.Steps,
			observability.KeyDuration: time.Since(began),
		}
		level := observability.LevelVerbose
		if err != nil {
			complete[observability.KeyError] = err
			level = observability.LevelError
		}
		observability.Emit(ctx, g.observer, EventNodeComplete, level, g.name, complete)

		if err != nil {
			return fail(current, fmt.Errorf("node execution failed: %w", err))
		}

		if g.checkpointInterval > 0 && run.Steps%g.checkpointInterval == 0 {
			if err := g.checkpoint(ctx, sess, current, run); err != nil {
				return fail(current, fmt.Errorf("checkpoint save failed: %w", err))
			}
		}

		if g.exitPoints[current] {
			observability.Emit(ctx, g.observer, EventGraphComplete, observability.LevelInfo, g.name, map[string]any{
				"exit_point": current,
				"steps":      run.Steps,
				"run_id":     run.ID,
			})

			if g.checkpointInterval > 0 && !g.preserveCheckpoints {
				if err := g.checkpointStore.Delete(ctx, run.ID); err != nil {
					observability.Emit(ctx, g.observer, EventCheckpointDelete, observability.LevelWarning, g.name, map[string]any{
						"run_id":               run.ID,
						observability.KeyError: err,
					})
				}
			}
			return run, nil
		}

		next, err := g.transition(ctx, current, sess)
		if err != nil {
			return fail(current, err)
		}
		current = next
	}
}

func (g *Graph) transition(ctx context.Context, from string, sess session.Session) (string, error) {
	edges, hasEdges := g.edges[from]
	if !hasEdges {
		return "", fmt.Errorf("%w: node %s has no outgoing edges and is not an exit point", ErrNoTransition, from)
	}

	for i, edge := range edges {
		if edge.Predicate == nil || edge.Predicate(sess) {
			observability.Emit(ctx, g.observer, EventEdgeTransition, observability.LevelVerbose, g.name, map[string]any{
				"from":       edge.From,
				"to":         edge.To,
				"edge_index": i,
				"predicate":  edge.Name,
			})
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("%w from node %s", ErrNoTransition, from)
}

func (g *Graph) checkpoint(ctx context.Context, sess session.Session, node string, run Run) error {
	cp := Checkpoint{
		RunID:     run.ID,
		Node:      node,
		Steps:     run.Steps,
		Path:      slices.Clone(run.Path),
		Session:   sess.Snapshot(),
		Timestamp: time.Now(),
	}
	if err := g.checkpointStore.Save(ctx, cp); err != nil {
		return err
	}

	observability.Emit(ctx, g.observer, EventCheckpointSave, observability.LevelInfo, g.name, map[string]any{
		observability.KeyNode: node,
		"run_id":              run.ID,
	})
	return nil
}

// findNextNode picks the edge to follow after a checkpointed node.
func (g *Graph) findNextNode(from string, sess session.Session) (string, error) {
	if g.exitPoints[from] {
		return "", ErrAlreadyComplete
	}

	edges, hasEdges := g.edges[from]
	if !hasEdges {
		return "", fmt.Errorf("%w: no outgoing edges from checkpoint node %s", ErrNoTransition, from)
	}

	for _, edge := range edges {
		if edge.Predicate == nil || edge.Predicate(sess) {
			return edge.To, nil
		}
	}

	return "", fmt.Errorf("%w from checkpoint node %s", ErrNoTransition, from)
}

// IsStepLimit reports whether err is a step-ceiling failure.
func IsStepLimit(err error) bool {
	return errors.Is(err, ErrStepLimit)
}
