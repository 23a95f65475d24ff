// Package events delivers committed mint events to downstream consumers.
package events

import (
	"context"
	"errors"
	"fmt"

	"vigri-presale/internal/domain"
	"vigri-presale/internal/observability"
	"vigri-presale/internal/solana"
)

// Publisher delivers one committed mint event.
type Publisher interface {
	Publish(ctx context.Context, e *domain.MintEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e *domain.MintEvent) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, e *domain.MintEvent) error {
	return f(ctx, e)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, *domain.MintEvent) error { return nil })

// Message is the wire form of a mint event.
type Message struct {
	EventID   string           `json:"event_id"`
	TierID    uint8            `json:"tier_id"`
	Tier      string           `json:"tier"`
	Serial    uint16           `json:"serial"`
	DesignKey uint16           `json:"design_key"`
	Mint      solana.PublicKey `json:"mint"`
	Owner     solana.PublicKey `json:"owner"`
	Path      domain.MintPath  `json:"path"`
	URI       string           `json:"uri"`
	Timestamp int64            `json:"timestamp"`
}

// NewMessage converts e to its wire form.
func NewMessage(e *domain.MintEvent) Message {
	return Message{
		EventID:   e.EventID,
		TierID:    uint8(e.TierID),
		Tier:      e.TierID.Slug(),
		Serial:    e.Serial,
		DesignKey: e.DesignKey,
		Mint:      e.Mint,
		Owner:     e.Owner,
		Path:      e.Path,
		URI:       e.URI,
		Timestamp: e.Timestamp,
	}
}

// Sink is a named Publisher inside a Fanout.
type Sink struct {
	Name      string
	Publisher Publisher
}

// Fanout delivers each event to every sink in order. A failing sink does
// not stop delivery to the others; failures are counted per sink and
// returned joined.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a Fanout over sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Add appends a sink. Not safe for use concurrently with Publish.
func (f *Fanout) Add(name string, p Publisher) {
	f.sinks = append(f.sinks, Sink{Name: name, Publisher: p})
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Publish implements Publisher.
func (f *Fanout) Publish(ctx context.Context, e *domain.MintEvent) error {
	var errs []error
	for _, s := range f.sinks {
		err := s.Publisher.Publish(ctx, e)
		observability.RecordPublish(s.Name, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

var (
	_ Publisher = PublisherFunc(nil)
	_ Publisher = (*Fanout)(nil)
)
