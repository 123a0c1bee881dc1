package main

import (
	"github.com/depthview/depthview-client/internal/orchestrator"
	"github.com/depthview/depthview-client/internal/results"
)

type outcome struct {
	result results.Result
	err    string
}

// outcomeListener forwards events to the console and resolves the run
// command's wait when the job reaches a terminal event.
type outcomeListener struct {
	orchestrator.Listener
	done chan outcome
}

func newOutcomeListener(inner orchestrator.Listener) *outcomeListener {
	return &outcomeListener{Listener: inner, done: make(chan outcome, 1)}
}

func (l *outcomeListener) Succeeded(result results.Result) {
	l.Listener.Succeeded(result)
	l.done <- outcome{result: result}
}

func (l *outcomeListener) Failed(message string) {
	l.Listener.Failed(message)
	l.done <- outcome{err: message}
}
