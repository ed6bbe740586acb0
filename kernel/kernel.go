// Package kernel assembles the routing graph from configuration and an
// injected crew, and runs one conversational turn at a time.
//
// The capability registry and the crew are always supplied by the caller;
// everything else (oracles, memory, checkpoints, observer) is created from
// configuration unless overridden with an Option.
//
//	k, err := kernel.New(&cfg, kernel.WithRegistry(reg), kernel.WithCrew(shop.Crew()))
//	result, err := k.RunTurn(ctx, "find me headphones", 42)
package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/memory"
	"github.com/tailored-agentic-units/concierge/nodes"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/oracle/providers"
	"github.com/tailored-agentic-units/concierge/orchestrate/graph"
	"github.com/tailored-agentic-units/concierge/orchestrate/graph/redisstore"
	"github.com/tailored-agentic-units/concierge/session"
	"github.com/tailored-agentic-units/concierge/tools"
)

// Graph node names. Workers use their label; each worker's tool node is
// the label followed by ToolsSuffix.
const (
	NodeSupervisor = "supervisor"
	NodeFinish     = "finish"
	ToolsSuffix    = ".tools"
)

// AbortedToolResult is recorded for tool calls left unanswered when a turn
// fails.
const AbortedToolResult = "turn aborted before this tool ran"

// Oracle is the decision service used by the supervisor and the workers.
// *oracle.Adapter implements it.
type Oracle interface {
	nodes.Decider
	nodes.Responder
}

// Result holds the outcome of one turn.
type Result struct {
	Reply     string             // Text returned to the user.
	RunID     string             // Session id; also the checkpoint key.
	Steps     int                // Node executions in the turn.
	Path      []string           // Visited nodes in order.
	ToolCalls []ToolCallRecord   // Tool requests made during the turn.
	Messages  []protocol.Message // Messages appended during the turn.
}

// ToolCallRecord pairs a tool request with its result.
type ToolCallRecord struct {
	protocol.ToolCall
	Worker  string // Worker that requested the call.
	Result  string // Tool result content.
	IsError bool   // Whether the result reports a failure.
}

// Option configures a Kernel before the graph is built.
type Option func(*options)

type options struct {
	registry    *tools.Registry
	crew        []nodes.Role
	oracle      Oracle
	observer    observability.Observer
	memory      memory.Store
	checkpoints graph.CheckpointStore
	logger      *slog.Logger
}

// WithRegistry sets the capability registry. Required.
func WithRegistry(r *tools.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithCrew sets the workers. Required.
func WithCrew(roles []nodes.Role) Option {
	return func(o *options) { o.crew = roles }
}

// WithAdapter uses one oracle for the supervisor and every worker instead
// of building providers from configuration.
func WithAdapter(a Oracle) Option {
	return func(o *options) { o.oracle = a }
}

// WithObserver overrides the observer named in the graph configuration.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithMemoryStore overrides the config-created memory store.
func WithMemoryStore(s memory.Store) Option {
	return func(o *options) { o.memory = s }
}

// WithCheckpointStore overrides the config-selected checkpoint store.
func WithCheckpointStore(s graph.CheckpointStore) Option {
	return func(o *options) { o.checkpoints = s }
}

// WithLogger sets the logger used by the kernel and its nodes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Kernel runs turns over a fixed graph. It is safe for concurrent use: each
// turn has its own session.
type Kernel struct {
	graph      *graph.Graph
	supervisor *nodes.Supervisor
	workers    []*nodes.Worker
	library    *memory.Library
	observer   observability.Observer
	logger     *slog.Logger
	fallback   string
}

// New creates a Kernel from configuration and builds its graph.
func New(cfg *Config, opts ...Option) (*Kernel, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		return nil, ErrNoRegistry
	}
	if len(o.crew) == 0 {
		return nil, ErrNoCrew
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.observer == nil {
		obs, err := ResolveObserver(cfg.Graph.Observer, o.logger)
		if err != nil {
			return nil, err
		}
		o.observer = obs
	}

	library, err := loadLibrary(cfg, o.memory)
	if err != nil {
		return nil, err
	}

	if o.checkpoints == nil && cfg.Graph.Checkpoint.Interval > 0 {
		store, err := newCheckpointStore(cfg)
		if err != nil {
			return nil, err
		}
		o.checkpoints = store
	}

	oracleFor := o.oracleResolver(cfg)

	k := &Kernel{
		library:  library,
		observer: o.observer,
		logger:   o.logger,
		fallback: cfg.FallbackReply,
	}
	if k.fallback == "" {
		k.fallback = DefaultFallbackReply
	}

	if err := k.build(cfg, o, oracleFor); err != nil {
		return nil, err
	}
	return k, nil
}

func (o options) oracleResolver(cfg *Config) func(role string) (Oracle, error) {
	if o.oracle != nil {
		return func(string) (Oracle, error) { return o.oracle, nil }
	}

	reg := oracle.NewRegistry(providers.Factory(context.Background()))
	return func(role string) (Oracle, error) {
		name := oracle.DefaultName
		if _, ok := cfg.Oracles[role]; ok {
			name = role
		}
		if !slices.Contains(reg.Names(), name) {
			if err := reg.Register(name, cfg.OracleConfig(role)); err != nil {
				return nil, err
			}
		}
		a, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

func (k *Kernel) build(cfg *Config, o options, oracleFor func(string) (Oracle, error)) error {
	nodeOpts := []nodes.Option{nodes.WithObserver(o.observer), nodes.WithLogger(o.logger)}

	names := make([]nodes.Label, len(o.crew))
	for i, role := range o.crew {
		names[i] = role.Name
	}
	labels, err := nodes.NewLabelSet(names...)
	if err != nil {
		return fmt.Errorf("invalid crew: %w", err)
	}

	gcfg := cfg.Graph
	gcfg.MaxIterations = cfg.StepLimit()
	graphOpts := []graph.Option{graph.WithObserver(o.observer)}
	if o.checkpoints != nil {
		graphOpts = append(graphOpts, graph.WithCheckpointStore(o.checkpoints))
	}
	g, err := graph.New(gcfg, graphOpts...)
	if err != nil {
		return fmt.Errorf("failed to create graph: %w", err)
	}

	supervisorOracle, err := oracleFor(NodeSupervisor)
	if err != nil {
		return fmt.Errorf("failed to create supervisor oracle: %w", err)
	}
	instruction := nodes.SupervisorInstruction(cfg.SupervisorPrompt, o.crew, k.library.Supervisor())
	k.supervisor = nodes.NewSupervisor(supervisorOracle, labels, instruction, nodeOpts...)

	if err := g.AddNode(NodeSupervisor, k.supervisor); err != nil {
		return err
	}
	if err := g.AddNode(NodeFinish, graph.NodeFunc(func(context.Context, session.Session) error { return nil })); err != nil {
		return err
	}

	for _, role := range o.crew {
		scoped, err := o.registry.Subset(role.Tools...)
		if err != nil {
			return fmt.Errorf("worker %s: %w", role.Name, err)
		}
		workerOracle, err := oracleFor(string(role.Name))
		if err != nil {
			return fmt.Errorf("failed to create oracle for %s: %w", role.Name, err)
		}

		instr := role.Instruction
		if override, ok := cfg.Workers[string(role.Name)]; ok && override != "" {
			instr = override
		}
		if docs := k.library.Worker(string(role.Name)); docs != "" {
			instr += "\n\n" + docs
		}

		worker := nodes.NewWorker(role.Name, instr, scoped, workerOracle, nodeOpts...)
		k.workers = append(k.workers, worker)

		name := string(role.Name)
		toolsNode := name + ToolsSuffix
		if err := g.AddNode(name, worker); err != nil {
			return err
		}
		if err := g.AddNode(toolsNode, nodes.NewToolNode(role.Name, scoped, nodeOpts...)); err != nil {
			return err
		}

		if err := g.AddNamedEdge(NodeSupervisor, name, "route="+name, graph.RouteIs(name)); err != nil {
			return err
		}
		if err := g.AddNamedEdge(name, toolsNode, "tool_calls", graph.LastHasToolCalls()); err != nil {
			return err
		}
		if err := g.AddNamedEdge(name, NodeSupervisor, "reply", graph.Always()); err != nil {
			return err
		}
		if err := g.AddNamedEdge(toolsNode, name, "results", graph.Always()); err != nil {
			return err
		}
	}

	// Any route that is not a worker ends the turn.
	if err := g.AddNamedEdge(NodeSupervisor, NodeFinish, "route="+string(nodes.Finish), graph.Always()); err != nil {
		return err
	}

	if err := g.SetEntryPoint(NodeSupervisor); err != nil {
		return err
	}
	if err := g.SetExitPoint(NodeFinish); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}

	k.graph = g
	return nil
}

// Supervisor returns the routing node.
func (k *Kernel) Supervisor() *nodes.Supervisor {
	return k.supervisor
}

// Workers returns the worker nodes in crew order.
func (k *Kernel) Workers() []*nodes.Worker {
	return k.workers
}

// RunTurn answers query for actorID in a fresh session. actorID must come
// from a trusted authentication step.
//
// Tool and worker failures are absorbed into the conversation. An error is
// returned only when the supervisor's oracle is unavailable, the step
// ceiling is exceeded, or ctx ends; Result then carries the partial turn.
func (k *Kernel) RunTurn(ctx context.Context, query string, actorID int64) (*Result, error) {
	if actorID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidActor, actorID)
	}
	return k.Turn(ctx, session.New(actorID), query)
}

// Turn answers query within an existing session so earlier turns stay in
// the conversation history.
func (k *Kernel) Turn(ctx context.Context, sess session.Session, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if sess.ActorID() <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidActor, sess.ActorID())
	}

	start := sess.Len()
	sess.Append(protocol.NewMessage(protocol.RoleUser, query))

	observability.Emit(ctx, k.observer, EventTurnStart, observability.LevelInfo, "kernel", map[string]any{
		"run_id":       sess.ID(),
		"actor":        sess.ActorID(),
		"query_length": len(query),
	})

	began := time.Now()
	run, err := k.graph.Execute(ctx, sess)
	return k.finish(ctx, sess, start, run, began, err)
}

// Resume continues a checkpointed turn, e.g. after a crash mid-turn.
func (k *Kernel) Resume(ctx context.Context, runID string) (*Result, error) {
	observability.Emit(ctx, k.observer, EventTurnResume, observability.LevelInfo, "kernel", map[string]any{
		"run_id": runID,
	})

	began := time.Now()
	sess, run, err := k.graph.Resume(ctx, runID)
	if sess == nil {
		return nil, err
	}
	return k.finish(ctx, sess, lastUserIndex(sess.Messages()), run, began, err)
}

func (k *Kernel) finish(ctx context.Context, sess session.Session, start int, run graph.Run, began time.Time, err error) (*Result, error) {
	if err != nil {
		if aborted := abortPending(sess.Messages()[min(start, sess.Len()):]); len(aborted) > 0 {
			sess.Append(aborted...)
		}
	}

	msgs := sess.Messages()
	if start > len(msgs) {
		start = len(msgs)
	}
	turn := msgs[start:]

	result := &Result{
		RunID:     run.ID,
		Steps:     run.Steps,
		Path:      run.Path,
		ToolCalls: toolCalls(turn),
		Messages:  turn,
	}

	if err != nil {
		k.logger.ErrorContext(ctx, "turn failed",
			slog.String("run_id", run.ID),
			slog.Int("steps", run.Steps),
			slog.Any("error", err))
		observability.Emit(ctx, k.observer, EventTurnError, observability.LevelError, "kernel", map[string]any{
			"run_id":                  run.ID,
			"steps":                   run.Steps,
			observability.KeyDuration: time.Since(began),
			observability.KeyError:    err,
		})
		return result, err
	}

	result.Reply = Reply(turn, k.fallback)

	observability.Emit(ctx, k.observer, EventTurnComplete, observability.LevelInfo, "kernel", map[string]any{
		"run_id":                  run.ID,
		"steps":                   run.Steps,
		"tool_calls":              len(result.ToolCalls),
		"reply_length":            len(result.Reply),
		observability.KeyDuration: time.Since(began),
	})
	return result, nil
}

// Reply returns the text of the last assistant message with non-blank
// content, or fallback when there is none.
func Reply(messages []protocol.Message, fallback string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == protocol.RoleAssistant && m.HasText() {
			return m.Content
		}
	}
	return fallback
}

// abortPending answers every tool call of turn that has no result yet, so
// a session that outlives a failed turn still has a well-formed history.
func abortPending(turn []protocol.Message) []protocol.Message {
	pending := make(map[string]bool)
	var order []string
	for _, m := range turn {
		switch m.Role {
		case protocol.RoleAssistant:
			for _, tc := range m.ToolCalls {
				pending[tc.ID] = true
				order = append(order, tc.ID)
			}
		case protocol.RoleTool:
			delete(pending, m.ToolCallID)
		}
	}

	var results []protocol.Message
	for _, id := range order {
		if pending[id] {
			results = append(results, protocol.NewToolResult(id, AbortedToolResult, true))
			delete(pending, id)
		}
	}
	return results
}

func toolCalls(turn []protocol.Message) []ToolCallRecord {
	var records []ToolCallRecord
	index := make(map[string]int)

	for _, m := range turn {
		switch m.Role {
		case protocol.RoleAssistant:
			for _, tc := range m.ToolCalls {
				index[tc.ID] = len(records)
				records = append(records, ToolCallRecord{ToolCall: tc, Worker: m.Author})
			}
		case protocol.RoleTool:
			if i, ok := index[m.ToolCallID]; ok {
				records[i].Result = m.Content
				records[i].IsError = m.IsError
				delete(index, m.ToolCallID)
			}
		}
	}
	return records
}

func lastUserIndex(msgs []protocol.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == protocol.RoleUser {
			return i
		}
	}
	return 0
}

// ResolveObserver returns the observer named in graph configuration. "" and
// "slog" log events through logger.
func ResolveObserver(name string, logger *slog.Logger) (observability.Observer, error) {
	obs, err := observability.Named(name, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	return obs, nil
}

func loadLibrary(cfg *Config, store memory.Store) (*memory.Library, error) {
	if store == nil {
		var err error
		if store, err = memory.NewStore(&cfg.Memory); err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		if store == nil {
			return nil, nil
		}
	}

	lib := memory.NewLibrary(store)
	if err := lib.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}
	return lib, nil
}

func newCheckpointStore(cfg *Config) (graph.CheckpointStore, error) {
	switch cfg.Graph.Checkpoint.Store {
	case "", "memory":
		return graph.NewMemoryStore(), nil
	case "redis":
		var opts []redisstore.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.Redis.TTL))
		}
		return redisstore.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheckpointStore, cfg.Graph.Checkpoint.Store)
	}
}
