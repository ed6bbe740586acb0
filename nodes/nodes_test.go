package nodes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/nodes"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/oracle/mock"
	"github.com/tailored-agentic-units/concierge/session"
	"github.com/tailored-agentic-units/concierge/tools"
)

type recorded struct {
	calls []tools.Args
}

func (r *recorded) executor(result tools.Result, err error) tools.Executor {
	return func(ctx context.Context, args tools.Args) (tools.Result, error) {
		r.calls = append(r.calls, args)
		return result, err
	}
}

func registry(t *testing.T, rec *recorded) *tools.Registry {
	t.Helper()
	cart := openapi3.NewObjectSchema().
		WithProperty("product_id", openapi3.NewIntegerSchema().WithMin(1)).
		WithProperty("quantity", openapi3.NewIntegerSchema().WithMin(1))
	cart.Required = []string{"product_id"}

	search := openapi3.NewObjectSchema().WithProperty("query", openapi3.NewStringSchema())
	search.Required = []string{"query"}

	reg, err := tools.NewRegistry(
		tools.Tool{
			Name:       "add_to_cart",
			Schema:     cart,
			ActorParam: "user_id",
			Executor:   rec.executor(tools.Result{Content: "added"}, nil),
		},
		tools.Tool{
			Name:     "search_products",
			Schema:   search,
			Executor: rec.executor(tools.Result{Content: `[{"id":1}]`}, nil),
		},
		tools.Tool{
			Name:       "checkout",
			ActorParam: "user_id",
			Executor:   rec.executor(tools.Result{}, errors.New("database is locked")),
		},
	)
	require.NoError(t, err)
	return reg
}

func subset(t *testing.T, reg *tools.Registry, names ...tools.Name) *tools.Registry {
	t.Helper()
	sub, err := reg.Subset(names...)
	require.NoError(t, err)
	return sub
}

func labels(t *testing.T) nodes.LabelSet {
	t.Helper()
	set, err := nodes.NewLabelSet("ProductSearch", "CartManager")
	require.NoError(t, err)
	return set
}

func TestLabelSet(t *testing.T) {
	set := labels(t)

	assert.Equal(t, []string{"ProductSearch", "CartManager", "FINISH"}, set.Strings())
	assert.True(t, set.Contains("FINISH"))
	assert.True(t, set.Contains("CartManager"))
	assert.False(t, set.Contains("cartmanager"))
	assert.False(t, set.Contains(""))

	_, err := set.Parse("Billing")
	assert.ErrorIs(t, err, nodes.ErrUnknownLabel)

	l, err := set.Parse("ProductSearch")
	require.NoError(t, err)
	assert.Equal(t, nodes.Label("ProductSearch"), l)
}

func TestNewLabelSet_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		workers []nodes.Label
	}{
		{"empty", nil},
		{"blank label", []nodes.Label{""}},
		{"reserved", []nodes.Label{"A", nodes.Finish}},
		{"duplicate", []nodes.Label{"A", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := nodes.NewLabelSet(tt.workers...)
			assert.Error(t, err)
		})
	}
}

func TestSupervisorInstruction(t *testing.T) {
	instr := nodes.SupervisorInstruction("", []nodes.Role{
		{Name: "ProductSearch", Description: "to help users find items in the catalog."},
		{Name: "CartManager", Description: "for anything involving the shopping cart."},
	}, "Store policy: free shipping over $50.")

	assert.Contains(t, instr, "specialized workers: ProductSearch, CartManager.")
	assert.Contains(t, instr, "- Use 'ProductSearch' to help users find items in the catalog.")
	assert.Contains(t, instr, "'FINISH'")
	assert.Contains(t, instr, "free shipping")
}

func TestSupervisor_Routes(t *testing.T) {
	provider := mock.New().Routes("CartManager")
	obs := &observability.Recorder{}
	sup := nodes.NewSupervisor(oracle.NewAdapter(provider), labels(t), "route", nodes.WithObserver(obs))

	sess := session.New(42)
	sess.Append(protocol.NewMessage(protocol.RoleUser, "show my cart"))

	require.NoError(t, sup.Execute(context.Background(), sess))
	assert.Equal(t, "CartManager", sess.Route())
	assert.Equal(t, 1, sess.Len(), "supervisor does not append")

	reqs := provider.RouteRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, nodes.RoutingQuestion, reqs[0].Question)
	assert.Equal(t, []string{"ProductSearch", "CartManager", "FINISH"}, reqs[0].Labels)

	events := obs.OfType(nodes.EventRoute)
	require.Len(t, events, 1)
	assert.Equal(t, "CartManager", events[0].Data[observability.KeyLabel])
}

func TestSupervisor_OutOfSetLabelFinishes(t *testing.T) {
	for _, raw := range []string{"Billing", "", "finish", "ProductSearch please"} {
		t.Run(raw, func(t *testing.T) {
			provider := mock.New().Routes(raw)
			sup := nodes.NewSupervisor(oracle.NewAdapter(provider), labels(t), "route",
				nodes.WithLogger(observability.NewNopLogger()))

			sess := session.New(42)
			sess.Append(protocol.NewMessage(protocol.RoleUser, "hello"))

			require.NoError(t, sup.Execute(context.Background(), sess))
			assert.Equal(t, string(nodes.Finish), sess.Route())
		})
	}
}

func TestSupervisor_UnavailableIsFatal(t *testing.T) {
	provider := mock.New().RouteError(errors.New("connection refused"))
	sup := nodes.NewSupervisor(oracle.NewAdapter(provider), labels(t), "route")

	sess := session.New(42)
	err := sup.Execute(context.Background(), sess)
	assert.ErrorIs(t, err, oracle.ErrOracleUnavailable)
	assert.Empty(t, sess.Route())
}

func TestWorker_AppendsReply(t *testing.T) {
	rec := &recorded{}
	reg := registry(t, rec)
	provider := mock.New().Text("Here are some headphones.")

	w := nodes.NewWorker("ProductSearch", "search expert for user {actor_id}", subset(t, reg, "search_products"), oracle.NewAdapter(provider))
	sess := session.New(42)
	sess.Append(protocol.NewMessage(protocol.RoleUser, "find me headphones"))

	require.NoError(t, w.Execute(context.Background(), sess))

	last, _ := sess.Last()
	assert.Equal(t, protocol.RoleAssistant, last.Role)
	assert.Equal(t, "ProductSearch", last.Author)
	assert.Equal(t, "Here are some headphones.", last.Content)

	reqs := provider.RespondRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "search expert for user 42", reqs[0].Instruction)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "search_products", reqs[0].Tools[0].Name)
}

func TestWorker_ActorParamHiddenFromOracle(t *testing.T) {
	reg := registry(t, &recorded{})
	provider := mock.New().Text("ok")
	w := nodes.NewWorker("CartManager", "cart", subset(t, reg, "add_to_cart"), oracle.NewAdapter(provider))

	require.NoError(t, w.Execute(context.Background(), session.New(42)))

	params := provider.RespondRequests()[0].Tools[0].Parameters
	props := params["properties"].(map[string]any)
	assert.Contains(t, props, "product_id")
	assert.NotContains(t, props, "user_id")
}

func TestWorker_OutOfSubsetRequestIsRecorded(t *testing.T) {
	reg := registry(t, &recorded{})
	provider := mock.New().Tools(mock.Call("c1", "checkout", `{}`))
	w := nodes.NewWorker("ProductSearch", "search", subset(t, reg, "search_products"), oracle.NewAdapter(provider),
		nodes.WithLogger(observability.NewNopLogger()))

	sess := session.New(42)
	require.NoError(t, w.Execute(context.Background(), sess))

	last, _ := sess.Last()
	require.True(t, last.HasToolCalls())
	assert.Equal(t, "checkout", last.ToolCalls[0].Name)
}

func TestWorker_OracleFailureIsAbsorbed(t *testing.T) {
	reg := registry(t, &recorded{})
	provider := mock.New().ReplyError(errors.New("timeout"))
	obs := &observability.Recorder{}
	w := nodes.NewWorker("CartManager", "cart", subset(t, reg, "add_to_cart"), oracle.NewAdapter(provider),
		nodes.WithObserver(obs), nodes.WithLogger(observability.NewNopLogger()))

	sess := session.New(42)
	require.NoError(t, w.Execute(context.Background(), sess))

	last, _ := sess.Last()
	assert.True(t, last.IsError)
	assert.Equal(t, nodes.WorkerFailureReply, last.Content)
	assert.False(t, last.HasToolCalls())

	events := obs.OfType(nodes.EventRespond)
	require.Len(t, events, 1)
	assert.Equal(t, nodes.OutcomeUnavailable, events[0].Data[observability.KeyOutcome])
}

func requestTools(sess session.Session, calls ...protocol.ToolCall) {
	sess.Append(protocol.Message{Role: protocol.RoleAssistant, Author: "CartManager", ToolCalls: calls})
}

func TestToolNode_OverwritesActorIdentity(t *testing.T) {
	rec := &recorded{}
	reg := registry(t, rec)
	node := nodes.NewToolNode("CartManager", subset(t, reg, "add_to_cart"))

	sess := session.New(42)
	requestTools(sess, mock.Call("c1", "add_to_cart", `{"product_id": 7, "quantity": 1, "user_id": 999}`))

	require.NoError(t, node.Execute(context.Background(), sess))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, int64(42), rec.calls[0]["user_id"])
	assert.EqualValues(t, 7, rec.calls[0]["product_id"])

	last, _ := sess.Last()
	assert.Equal(t, protocol.RoleTool, last.Role)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.Equal(t, "added", last.Content)
	assert.False(t, last.IsError)

	// The logged request keeps what the model asked for.
	msgs := sess.Messages()
	assert.Contains(t, msgs[0].ToolCalls[0].Arguments, "999")
}

func TestToolNode_UnauthorizedToolNotExecuted(t *testing.T) {
	rec := &recorded{}
	reg := registry(t, rec)
	obs := &observability.Recorder{}
	node := nodes.NewToolNode("ProductSearch", subset(t, reg, "search_products"),
		nodes.WithObserver(obs), nodes.WithLogger(observability.NewNopLogger()))

	sess := session.New(42)
	requestTools(sess, mock.Call("c1", "add_to_cart", `{"product_id": 1}`))

	require.NoError(t, node.Execute(context.Background(), sess))

	assert.Empty(t, rec.calls, "no executor may run")
	last, _ := sess.Last()
	assert.True(t, last.IsError)
	assert.Equal(t, "c1", last.ToolCallID)
	assert.Contains(t, last.Content, nodes.ErrUnauthorizedTool.Error())

	events := obs.OfType(nodes.EventTool)
	require.Len(t, events, 1)
	assert.Equal(t, nodes.OutcomeUnauthorized, events[0].Data[observability.KeyOutcome])
}

func TestToolNode_OneResultPerRequestInOrder(t *testing.T) {
	rec := &recorded{}
	reg := registry(t, rec)
	node := nodes.NewToolNode("CartManager", subset(t, reg, "add_to_cart", "checkout"),
		nodes.WithLogger(observability.NewNopLogger()))

	sess := session.New(42)
	requestTools(sess,
		mock.Call("a", "add_to_cart", `{"product_id": 1}`),
		mock.Call("b", "search_products", `{"query": "x"}`),
		mock.Call("c", "add_to_cart", `{"quantity": 2}`),
		mock.Call("d", "checkout", `{}`),
	)

	require.NoError(t, node.Execute(context.Background(), sess))

	msgs := sess.Messages()
	require.Len(t, msgs, 5)
	results := msgs[1:]

	ids := []string{results[0].ToolCallID, results[1].ToolCallID, results[2].ToolCallID, results[3].ToolCallID}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)

	assert.False(t, results[0].IsError)
	assert.True(t, results[1].IsError, "unauthorized")
	assert.True(t, results[2].IsError, "missing required product_id")
	assert.Contains(t, results[2].Content, tools.ErrInvalidArguments.Error())
	assert.True(t, results[3].IsError, "executor failure")
	assert.Contains(t, results[3].Content, "database is locked")

	assert.Len(t, rec.calls, 2, "add_to_cart a and checkout d ran")
}

func TestToolNode_NoRequestsIsNoop(t *testing.T) {
	node := nodes.NewToolNode("CartManager", subset(t, registry(t, &recorded{}), "add_to_cart"))

	sess := session.New(42)
	sess.Append(protocol.NewMessage(protocol.RoleAssistant, "done"))
	require.NoError(t, node.Execute(context.Background(), sess))
	assert.Equal(t, 1, sess.Len())
}

func TestToolNode_ToolReportedError(t *testing.T) {
	rec := &recorded{}
	tool := tools.Tool{
		Name:       "checkout",
		ActorParam: "user_id",
		Executor:   rec.executor(tools.Result{Content: "Checkout failed: cart is empty.", IsError: true}, nil),
	}
	reg, err := tools.NewRegistry(tool)
	require.NoError(t, err)

	sess := session.New(42)
	requestTools(sess, mock.Call("c1", "checkout", `{}`))
	require.NoError(t, nodes.NewToolNode("CartManager", reg).Execute(context.Background(), sess))

	last, _ := sess.Last()
	assert.True(t, last.IsError)
	assert.Contains(t, last.Content, "cart is empty")
}

func TestAppendOnly(t *testing.T) {
	rec := &recorded{}
	reg := registry(t, rec)
	provider := mock.New().
		Tools(mock.Call("c1", "add_to_cart", `{"product_id": 1}`)).
		Text("Added.")
	w := nodes.NewWorker("CartManager", "cart", subset(t, reg, "add_to_cart"), oracle.NewAdapter(provider))
	tn := nodes.NewToolNode("CartManager", subset(t, reg, "add_to_cart"))

	sess := session.New(42)
	sess.Append(protocol.NewMessage(protocol.RoleUser, "add product 1"))

	var before []protocol.Message
	steps := []interface {
		Execute(context.Context, session.Session) error
	}{w, tn, w}
	for _, step := range steps {
		before = sess.Messages()
		require.NoError(t, step.Execute(context.Background(), sess))

		after := sess.Messages()
		require.GreaterOrEqual(t, len(after), len(before))
		assert.Equal(t, before, after[:len(before)])
	}
	assert.Equal(t, 4, sess.Len())
}
