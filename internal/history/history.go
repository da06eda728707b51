// Package history stores accepted triggers for the status page.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/sweeney/pir-stairs/internal/stairs"
)

// ErrNotFound indicates the repository holds no records.
var ErrNotFound = errors.New("history: no records")

// Record is one stored trigger.
type Record struct {
	ID        int64
	Time      time.Time
	Direction stairs.Direction
	Pin       int8
	PresetID  uint8
}

// FromEvent converts a trigger event into an unsaved record.
func FromEvent(event stairs.TriggerEvent) *Record {
	return &Record{
		Time:      event.Time,
		Direction: event.Direction,
		Pin:       event.Pin,
		PresetID:  event.PresetID,
	}
}

// Repository persists trigger records. Implementations are safe for concurrent use.
type Repository interface {
	// Save stores r and assigns its ID.
	Save(ctx context.Context, r *Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*Record, error)

	// Latest returns the newest record or ErrNotFound.
	Latest(ctx context.Context) (*Record, error)

	// Prune removes records older than before.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases resources.
	Close() error
}
