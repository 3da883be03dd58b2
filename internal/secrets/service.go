package secrets

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"devopsdemo/internal/types"
)

// DefaultName is the secret identifier used when none is configured.
const DefaultName = "devops-demo/app-secret"

// Recorder receives one observation per retrieval. outcome is
// types.OutcomeSuccess or the failing Kind.
type Recorder interface {
	RecordRetrieval(ctx context.Context, outcome string, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordRetrieval(context.Context, string, time.Duration) {}

// Result is the outcome of one Retrieve call. Masked is always safe to render.
// On failure Value is empty and Err is a *RetrievalError.
type Result struct {
	Value     types.SecretString
	Masked    string
	Retrieved bool
	Err       error
}

// Service fetches the configured secret and masks it. It holds no mutable
// state and is safe for concurrent use.
type Service struct {
	store        Store
	name         string
	redactErrors bool
	recorder     Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the metrics recorder. Defaults to a no-op.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithRedactedErrors hides the failure kind from the masked placeholder. The
// kind is still logged.
func WithRedactedErrors(redact bool) Option {
	return func(s *Service) {
		s.redactErrors = redact
	}
}

// WithClock overrides the time source used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service bound to a single secret name.
func NewService(store Store, name string, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("secret store must not be nil")
	}
	if name == "" {
		return nil, errors.New("secret name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:    store,
		name:     name,
		recorder: noopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the secret identifier this service is bound to.
func (s *Service) Name() string {
	return s.name
}

// Retrieve performs one remote lookup and masks the result. It never returns
// an error to the caller: failures degrade to a placeholder in Result.Masked,
// with the classified error in Result.Err.
func (s *Service) Retrieve(ctx context.Context) Result {
	start := s.now()
	payload, err := s.store.GetSecret(ctx, s.name)
	elapsed := s.now().Sub(start)

	logger := types.LoggerFromContext(ctx, s.logger)

	if err != nil {
		rerr := Classify(s.name, err)
		logger.Warn("secret retrieval failed",
			slog.String("secret_name", s.name),
			slog.String("kind", string(rerr.Kind)),
			slog.Duration("duration", elapsed),
			slog.String("error", rerr.Error()),
		)
		s.recorder.RecordRetrieval(ctx, string(rerr.Kind), elapsed)
		return Result{
			Masked: s.failurePlaceholder(rerr.Kind),
			Err:    rerr,
		}
	}

	value := ExtractValue(payload)
	logger.Debug("secret retrieved",
		slog.String("secret_name", s.name),
		slog.Duration("duration", elapsed),
	)
	s.recorder.RecordRetrieval(ctx, types.OutcomeSuccess, elapsed)

	return Result{
		Value:     value,
		Masked:    Mask(value.Unmask()),
		Retrieved: true,
	}
}

func (s *Service) failurePlaceholder(kind Kind) string {
	if s.redactErrors {
		return Placeholder
	}
	return "*** (error: " + kind.TypeName() + ")"
}
