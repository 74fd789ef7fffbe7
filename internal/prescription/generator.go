// Package prescription turns a patient transcript into a structured
// prescription suggestion, falling back to a conservative payload whenever
// the remote model cannot be used.
package prescription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonerrors "clinqo-prescriber/internal/common/errors"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/common/metrics"
	"clinqo-prescriber/internal/common/openrouter"
	"clinqo-prescriber/internal/common/validation"
	"clinqo-prescriber/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Completer is the remote inference dependency.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (*openrouter.Completion, error)
}

// Pipeline is what callers depend on. Generator and CachedGenerator both
// satisfy it.
type Pipeline interface {
	Generate(ctx context.Context, transcript string) (*models.PrescriptionResult, error)
}

// Recorder receives one observation per finished invocation.
type Recorder interface {
	RecordGeneration(ctx context.Context, status string, duration time.Duration)
}

type Generator struct {
	config    *Config
	completer Completer
	logger    logger.Logger
	now       func() time.Time
	tracer    trace.Tracer
	recorder  Recorder
}

type Option func(*Generator)

func WithLogger(log logger.Logger) Option {
	return func(g *Generator) { g.logger = log }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(g *Generator) { g.tracer = t }
}

func NewGenerator(config *Config, completer Completer, opts ...Option) *Generator {
	g := &Generator{
		config:    config,
		completer: completer,
		logger:    logger.NewNoOpLogger(),
		now:       time.Now,
		tracer:    otel.Tracer("clinqo-prescriber/prescription"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(map[string]interface{}{"component": "prescription-generator"})
	return g
}

// Generate runs the full pipeline. The only error it returns is a
// configuration error; every other failure produces a fallback result.
func (g *Generator) Generate(ctx context.Context, transcript string) (result *models.PrescriptionResult, err error) {
	if problem := g.config.credentialProblem(); problem != "" {
		return nil, commonerrors.NewConfigurationInvalidError(problem)
	}

	start := g.now()
	ctx, span := g.tracer.Start(ctx, "prescription.generate")
	defer span.End()

	log := g.logger
	if id := RequestIDFromContext(ctx); id != "" {
		log = log.With(map[string]interface{}{"requestId": id})
	}

	var symptoms []string
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked, using fallback", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			if symptoms == nil {
				symptoms = []string{GeneralDiscomfort}
			}
			result, err = g.fallback(transcript, symptoms), nil
		}
		if result != nil {
			span.SetAttributes(attribute.String("prescription.status", result.Status))
			metrics.PrescriptionsGenerated.WithLabelValues(result.Status).Inc()
			if g.recorder != nil {
				g.recorder.RecordGeneration(ctx, result.Status, g.now().Sub(start))
			}
		}
	}()

	symptoms = ExtractSymptoms(transcript)
	prompt := BuildPrompt(transcript, symptoms)

	log.Debug("generating prescription", map[string]interface{}{
		"symptoms":         symptoms,
		"transcriptLength": len(transcript),
	})

	completion, callErr := g.completer.Complete(ctx, SystemDirective, prompt)
	if callErr != nil {
		stdErr := commonerrors.NewInferenceError(openrouter.Code(callErr), callErr)
		log.Warn("inference failed, using fallback", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"retryable": stdErr.Retryable,
			"details":   stdErr.Details,
		})
		return g.fallback(transcript, symptoms), nil
	}

	obj, strategy, ok := ParseResponse(completion.Content)
	metrics.ParseStrategyHits.WithLabelValues(string(strategy)).Inc()
	if !ok {
		stdErr := commonerrors.NewResponseUnparseableError(fmt.Sprintf("%d characters, no JSON object", len(completion.Content)))
		log.Warn("model response had no JSON payload, using fallback", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		return g.fallback(transcript, symptoms), nil
	}

	payload, shapeErr := g.shape(obj)
	if shapeErr != nil {
		stdErr := commonerrors.Normalize(shapeErr)
		log.Warn("model payload rejected, using fallback", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		return g.fallback(transcript, symptoms), nil
	}

	log.Info("prescription generated", map[string]interface{}{
		"strategy":    string(strategy),
		"medications": len(payload.Medications),
	})

	return &models.PrescriptionResult{
		Status:       models.StatusSuccess,
		Prescription: payload,
		Timestamp:    g.timestamp(),
		ModelUsed:    g.config.Model,
	}, nil
}

// shape turns the parsed object into the typed payload. In strict mode it
// must satisfy the JSON Schema first. In permissive mode scalar drift is
// coerced and only values that still do not fit are rejected.
func (g *Generator) shape(obj map[string]interface{}) (models.Prescription, error) {
	if g.config.strict() {
		result, err := validation.ValidatePrescription(obj)
		if err != nil {
			return models.Prescription{}, err
		}
		if !result.Valid {
			return models.Prescription{}, commonerrors.NewSchemaValidationFailedError(result.Summary())
		}
	} else {
		coercePayload(obj)
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return models.Prescription{}, err
	}

	var payload models.Prescription
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.Prescription{}, commonerrors.NewSchemaValidationFailedError(err.Error())
	}
	payload.Normalize()
	return payload, nil
}

func (g *Generator) fallback(transcript string, symptoms []string) *models.PrescriptionResult {
	payload := SynthesizeFallback(transcript, symptoms)
	payload.Normalize()
	return &models.PrescriptionResult{
		Status:       models.StatusFallback,
		Prescription: payload,
		Timestamp:    g.timestamp(),
		ModelUsed:    models.ModelFallback,
	}
}

func (g *Generator) timestamp() string {
	return formatTimestamp(g.now())
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
