// Package nodes implements the three kinds of graph node that make up a
// turn: the Supervisor, which picks the next label; Workers, which answer or
// request tools; and ToolNodes, which run a worker's tool requests with the
// session's actor bound into every security-sensitive argument.
//
// Only the Supervisor can fail a turn, and only when the oracle is
// unavailable. Every other failure is appended to the session as a message
// so the next routing decision can react to it.
package nodes
