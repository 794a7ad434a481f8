package bridge

import "time"

// InvocationEvent identifies one invocation for observers. It never carries parameter values.
type InvocationEvent struct {
	InvocationID   string
	FunctionName   string
	Target         TargetKind
	Host           string
	ParameterNames []string
}

// EventSink receives the lifecycle of every invocation.
type EventSink interface {
	InvocationStarted(event InvocationEvent)
	AttemptFailed(event InvocationEvent, attempt int, failure error)
	InvocationSucceeded(event InvocationEvent, outcome InvocationOutcome)
	InvocationFailed(event InvocationEvent, failure error, elapsed time.Duration)
}

// NopSink discards events.
type NopSink struct{}

// InvocationStarted does nothing.
func (NopSink) InvocationStarted(InvocationEvent) {}

// AttemptFailed does nothing.
func (NopSink) AttemptFailed(InvocationEvent, int, error) {}

// InvocationSucceeded does nothing.
func (NopSink) InvocationSucceeded(InvocationEvent, InvocationOutcome) {}

// InvocationFailed does nothing.
func (NopSink) InvocationFailed(InvocationEvent, error, time.Duration) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// InvocationStarted forwards to every sink.
func (sinks MultiSink) InvocationStarted(event InvocationEvent) {
	for _, sink := range sinks {
		sink.InvocationStarted(event)
	}
}

// AttemptFailed forwards to every sink.
func (sinks MultiSink) AttemptFailed(event InvocationEvent, attempt int, failure error) {
	for _, sink := range sinks {
		sink.AttemptFailed(event, attempt, failure)
	}
}

// InvocationSucceeded forwards to every sink.
func (sinks MultiSink) InvocationSucceeded(event InvocationEvent, outcome InvocationOutcome) {
	for _, sink := range sinks {
		sink.InvocationSucceeded(event, outcome)
	}
}

// InvocationFailed forwards to every sink.
func (sinks MultiSink) InvocationFailed(event InvocationEvent, failure error, elapsed time.Duration) {
	for _, sink := range sinks {
		sink.InvocationFailed(event, failure, elapsed)
	}
}
