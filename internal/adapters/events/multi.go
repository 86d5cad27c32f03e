package events

import (
	"context"
	"errors"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
)

// MultiPublisher fans an event out to every sink. One failing sink does not stop the others.
type MultiPublisher struct {
	sinks []portssvc.EventPublisher
}

var _ portssvc.EventPublisher = (*MultiPublisher)(nil)

// NewMultiPublisher skips nil sinks.
func NewMultiPublisher(sinks ...portssvc.EventPublisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len is the number of attached sinks.
func (m *MultiPublisher) Len() int { return len(m.sinks) }
