package metrics

import (
	"context"
	"time"
)

// Collector stores periodic snapshots of a drain session.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Session() string
	Close() error
}

// Repository defines the interface for metrics data storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Flush() error
	Close() error
}

// Snapshot is one row of a drain session. Nil GPU or Battery means the
// reading was unavailable.
type Snapshot struct {
	Timestamp time.Time
	Session   string
	CPU       CPUMetrics
	Frames    FrameMetrics
	GPU       *GPUMetrics
	Battery   *BatteryMetrics
	Draining  bool
}

// CPUMetrics holds a CPU reading. Valid is false when the sample was
// discarded, which is stored as NULL rather than 0.
type CPUMetrics struct {
	Percent float64
	Average float64
	Valid   bool
}

type FrameMetrics struct {
	Produced int64
	Skipped  int64
	Rejected int64
	PTS      float64
}

type GPUMetrics struct {
	Utilization int
	Temperature int
	Power       int
}

type BatteryMetrics struct {
	Percent     int
	Drained     int
	Discharging bool
}
