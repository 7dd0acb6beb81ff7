package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/internal/session"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

const (
	// StreamName is the name of the engine request stream.
	StreamName = "VIRTUAL_CONTRIBUTOR"

	// InputSubject carries inbound engine requests.
	InputSubject = "vc.engine.input"

	// ResultSubject carries outbound engine responses.
	ResultSubject = "vc.engine.result"

	// ConsumerName is the durable consumer of the engine.
	ConsumerName = "vc-engine"
)

// Answerer runs one pipeline request. It never fails; unrecoverable
// errors surface as the unavailable response.
type Answerer interface {
	Answer(ctx context.Context, req *model.Request) *model.Response
}

// Engine consumes requests from the input subject, serializes them per
// user, runs the pipeline and publishes responses to the result
// subject. Every message is acked exactly once after handling, apology
// responses included; redelivery only happens when the process dies
// mid-message.
type Engine struct {
	client   *Client
	pipeline Answerer
	sessions *session.Store
	locks    *session.KeyedMutex
	logger   *logger.Logger

	ctx     context.Context
	consume jetstream.ConsumeContext
}

// NewEngine creates a new queue consumer engine.
func NewEngine(client *Client, pipeline Answerer, sessions *session.Store, log *logger.Logger) *Engine {
	return &Engine{
		client:   client,
		pipeline: pipeline,
		sessions: sessions,
		locks:    session.NewKeyedMutex(),
		logger:   log,
	}
}

// EnsureStream ensures the engine stream exists with proper
// configuration.
func (e *Engine) EnsureStream(ctx context.Context) error {
	js := e.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{"vc.engine.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Virtual contributor requests and responses",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Start begins consuming requests. The context governs the lifetime of
// in-flight handlers: cancelling it lets a running pipeline abort at
// its next external call.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.EnsureStream(ctx); err != nil {
		return err
	}

	e.ctx = ctx

	consumer, err := e.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		FilterSubject: InputSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       5 * time.Minute,
		MaxAckPending: 20,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	consume, err := consumer.Consume(e.onMessage)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	e.consume = consume

	e.logger.Info("engine consuming requests",
		zap.String("stream", StreamName),
		zap.String("subject", InputSubject),
	)

	return nil
}

// Stop halts message delivery. In-flight handlers finish on their own.
func (e *Engine) Stop() {
	if e.consume != nil {
		e.consume.Stop()
	}
}

func (e *Engine) onMessage(msg jetstream.Msg) {
	defer func() {
		if err := msg.Ack(); err != nil {
			e.logger.Error("failed to ack message", zap.Error(err))
		}
	}()

	envelope, err := decodeEnvelope(msg.Data())
	if err != nil {
		e.logger.Error("failed to parse inbound envelope", zap.Error(err))
		metrics.RecordRequest("unknown", "malformed")
		return
	}

	input := envelope.Input
	messageID := uuid.Must(uuid.NewV7()).String()
	log := e.logger.WithRequest(messageID, input.UserID, input.BodyOfKnowledgeID)

	// One request at a time per user; later ones queue behind the
	// in-flight one.
	unlock := e.locks.Lock(input.UserID)
	defer unlock()

	switch op := envelope.Operation(); op {
	case model.OperationQuery:
		e.handleQuery(e.ctx, input, log)
	case model.OperationReset:
		e.handleReset(e.ctx, input, log)
	default:
		log.Warn("unknown operation", zap.String("operation", op))
		metrics.RecordRequest(op, "unknown")
	}
}

func (e *Engine) handleQuery(ctx context.Context, input *model.InboundMessage, log *logger.Logger) {
	req := input.ToRequest()

	// Callers that keep their own history send it inline; otherwise
	// fall back to the server-side session window.
	if len(req.History) == 0 {
		req.History = e.sessions.Get(input.UserID)
	}

	log.Info("processing query", zap.Int("history_turns", len(req.History)))

	resp := e.pipeline.Answer(ctx, req)

	e.sessions.Append(input.UserID, model.Turn{Role: model.RoleHuman, Content: req.Message})
	e.sessions.Append(input.UserID, model.Turn{Role: model.RoleAssistant, Content: resp.Result})

	e.publish(ctx, resp, input, log)
}

func (e *Engine) handleReset(ctx context.Context, input *model.InboundMessage, log *logger.Logger) {
	e.sessions.Clear(input.UserID)
	log.Info("session history cleared")
	metrics.RecordRequest(model.OperationReset, "ok")

	e.publish(ctx, &model.Response{
		Result:         "Reset function executed",
		OriginalResult: "Reset function executed",
		Sources:        []model.SourceAttribution{},
	}, input, log)
}

func (e *Engine) publish(ctx context.Context, resp *model.Response, input *model.InboundMessage, log *logger.Logger) {
	data, err := json.Marshal(&model.OutboundEnvelope{
		Response: resp,
		Original: input,
	})
	if err != nil {
		log.Error("failed to marshal response", zap.Error(err))
		return
	}

	if _, err := e.client.JetStream().Publish(ctx, ResultSubject, data); err != nil {
		log.Error("failed to publish response", zap.Error(err))
		return
	}

	log.Info("response published", zap.Int("sources", len(resp.Sources)))
}

// decodeEnvelope parses an inbound message body. Some producers
// double-encode the payload as a JSON string; both forms are accepted.
// An envelope without an input block or without the fields the pipeline
// requires is rejected here, before the core is invoked.
func decodeEnvelope(data []byte) (*model.InboundEnvelope, error) {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		data = []byte(asString)
	}

	var envelope model.InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	if envelope.Input == nil {
		return nil, fmt.Errorf("envelope has no input")
	}
	if envelope.Input.UserID == "" {
		return nil, fmt.Errorf("input has no userID")
	}
	if envelope.Operation() == model.OperationQuery {
		if envelope.Input.Message == "" {
			return nil, fmt.Errorf("query input has no message")
		}
		if envelope.Input.BodyOfKnowledgeID == "" {
			return nil, fmt.Errorf("query input has no bodyOfKnowledgeID")
		}
	}

	return &envelope, nil
}
