// Package shelltest provides a recording Shell for tests.
package shelltest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler decides the outcome of one recorded command.
type Handler func(command string) ([]string, error)

// Recorder records every command line it is asked to run. Commands matching
// a registered substring are answered by the matching handler.
type Recorder struct {
	mu       sync.Mutex
	commands []string
	handlers []rule
}

type rule struct {
	match   string
	handler Handler
}

// On registers handler for commands containing match. Earlier rules win.
func (r *Recorder) On(match string, handler Handler) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, rule{match: match, handler: handler})
	return r
}

// FailOn makes commands containing match fail with message.
func (r *Recorder) FailOn(match, message string) *Recorder {
	return r.On(match, func(string) ([]string, error) {
		return nil, fmt.Errorf("%s", message)
	})
}

func (r *Recorder) Execute(_ context.Context, name string, args ...string) ([]string, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	r.mu.Lock()
	r.commands = append(r.commands, line)
	handlers := r.handlers
	r.mu.Unlock()

	for _, h := range handlers {
		if strings.Contains(line, h.match) {
			return h.handler(line)
		}
	}
	return nil, nil
}

// Commands returns the recorded command lines in order.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// Ran reports whether any recorded command contains substr.
func (r *Recorder) Ran(substr string) bool {
	return r.Count(substr) > 0
}

// Count returns how many recorded commands contain substr.
func (r *Recorder) Count(substr string) int {
	n := 0
	for _, c := range r.Commands() {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}
