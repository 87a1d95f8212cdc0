package executor

import (
	"context"

	"github.com/agentcore/orchestrator/internal/apperr"
)

// EventKind identifies the category of an executor event, matching
// SPEC_FULL §4.4's required event kinds.
type EventKind string

const (
	EventChatModelStream EventKind = "on_chat_model_stream"
	EventToolStart       EventKind = "on_tool_start"
	EventToolEnd         EventKind = "on_tool_end"
	EventNodeStart       EventKind = "on_node_start"
	EventNodeEnd         EventKind = "on_node_end"
)

// Event is one item on an invocation's event stream.
type Event struct {
	Kind  EventKind
	Node  string
	Delta string // set on EventChatModelStream
	Tool  string // set on EventToolStart/EventToolEnd
}

// outputNodes is the hard whitelist SPEC_FULL §4.4 mandates: only these
// nodes' chat-model-stream tokens are ever forwarded. planning and
// rewrite call the LLM too, but their output is intermediate and must
// never leak to the client mid-stream.
var outputNodes = map[string]bool{
	"chatbot": true,
	"summary": true,
}

// Sink receives events emitted during one invocation. The executor fans
// events from the node runner itself via a global listener, never by
// re-invoking the graph a second time to produce a stream. Emit returns
// an error on persistent back-pressure (the buffer is full) rather than
// dropping the event silently: a dropped chat-model-stream delta would
// break the invariant that the concatenated chunk events equal the
// persisted assistant message's content.
type Sink interface {
	Emit(Event) error
}

// ChanSink is a Sink backed by a buffered channel, owned by the caller
// driving the invocation (the streaming transport, buffered at 64).
type ChanSink struct {
	ch chan<- Event
}

func NewChanSink(ch chan<- Event) *ChanSink { return &ChanSink{ch: ch} }

func (s *ChanSink) Emit(e Event) error {
	if s == nil || s.ch == nil {
		return nil
	}
	select {
	case s.ch <- e:
		return nil
	default:
		return apperr.New(apperr.Internal, "executor.sink_backpressure", "event sink buffer full")
	}
}

// emitChunk forwards a content delta for node, subject to the output-node
// whitelist — a hard contract, not a best-effort filter. The caller must
// treat a non-nil error as fatal to the invocation (see streamAssistantReply).
func emitChunk(sink Sink, node, delta string) error {
	if sink == nil || !outputNodes[node] {
		return nil
	}
	return sink.Emit(Event{Kind: EventChatModelStream, Node: node, Delta: delta})
}

// emitToolStart/emitToolEnd are best-effort progress notifications, not
// part of the chunk-content invariant emitChunk enforces, so a dropped
// one doesn't abort the turn.
func emitToolStart(sink Sink, name string) {
	if sink == nil {
		return
	}
	_ = sink.Emit(Event{Kind: EventToolStart, Tool: name})
}

func emitToolEnd(sink Sink, name string) {
	if sink == nil {
		return
	}
	_ = sink.Emit(Event{Kind: EventToolEnd, Tool: name})
}

type sinkKey struct{}

// WithSink attaches sink to ctx for the nodes invoked during this run to
// retrieve via SinkFromContext.
func WithSink(ctx context.Context, sink Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFromContext returns the sink attached by WithSink, or nil (a nil
// Sink is valid: emit* helpers treat it as "don't emit").
func SinkFromContext(ctx context.Context) Sink {
	sink, _ := ctx.Value(sinkKey{}).(Sink)
	return sink
}
