package telemetry

import (
	"context"
	"time"
)

// Collector defines the domain-facing recording interface
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository defines the interface for snapshot storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}

// Snapshot is one recorded observation of the running sequencer
type Snapshot struct {
	Timestamp      time.Time
	BPM            float64
	Source         string
	ExternalActive bool
	TickCount      uint64
	TriggerCounts  []uint64
	QueueDepth     int
	QueueDrops     uint64
}
