package telemetry

import (
	"context"
	"time"
)

// Noop discards all metrics. It is used when METRICS_ENABLED is false.
type Noop struct{}

func (Noop) RecordRequest(string, string, string, time.Duration) {}

func (Noop) RecordRetrieval(context.Context, string, time.Duration) {}
