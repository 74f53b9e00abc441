// Package runlog records file-level outcomes of batch runs.
package runlog

import (
	"errors"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

// Sink receives log entries as soon as they are produced
type Sink interface {
	Write(entry domain.LogEntry) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(entry domain.LogEntry) error

func (f SinkFunc) Write(entry domain.LogEntry) error { return f(entry) }

// MultiSink writes to several sinks
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that writes every entry to all non-nil sinks
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write writes the entry to every sink, even when an earlier one fails
func (m *MultiSink) Write(entry domain.LogEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every entry
type Discard struct{}

func (Discard) Write(domain.LogEntry) error { return nil }
