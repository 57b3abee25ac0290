package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/clipforge/clipforge/pkg/models"
)

// AgentError indicates an agent subprocess failure: timeout, nonzero
// exit, or unparseable output. These enter the recovery chain.
type AgentError struct {
	Stage  models.Stage
	Reason string
	Err    error
}

// Error returns the formatted error message.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent execution failed at %s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("agent execution failed at %s: %s", e.Stage, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AgentError) Unwrap() error {
	return e.Err
}

// QAError indicates the QA model emitted something unparseable. For
// recovery purposes it is treated like an agent-execution failure.
type QAError struct {
	Gate string
	Err  error
}

// Error returns the formatted error message.
func (e *QAError) Error() string {
	return fmt.Sprintf("qa evaluation failed for gate %q: %v", e.Gate, e.Err)
}

// Unwrap returns the underlying error.
func (e *QAError) Unwrap() error {
	return e.Err
}

// TransitionError indicates an illegal (stage, event) pair handed to the
// state machine. Never retried.
type TransitionError struct {
	Stage models.Stage
	Event Event
}

// Error returns the formatted error message.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: no rule for stage %q on event %q", e.Stage, e.Event)
}

// recoverable reports whether the recovery chain may rescue this error.
// Agent-execution and QA failures plus OS-level I/O errors qualify;
// anything else propagates out of the chain untouched.
func recoverable(err error) bool {
	var agentErr *AgentError
	var qaErr *QAError
	if errors.As(err, &agentErr) || errors.As(err, &qaErr) {
		return true
	}

	var pathErr *os.PathError
	var linkErr *os.LinkError
	var syscallErr *os.SyscallError
	if errors.As(err, &pathErr) || errors.As(err, &linkErr) || errors.As(err, &syscallErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
