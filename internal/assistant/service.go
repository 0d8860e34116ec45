package assistant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hercure/internal/agent"
	"hercure/internal/conversation"
	"hercure/internal/health"
	"hercure/internal/insight"
	"hercure/internal/risk"
)

// HealthSource loads the newest records and symptom entries of a user.
type HealthSource interface {
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]health.Record, []health.SymptomEntry, error)
}

// Conversations is the chat memory used by the assistant.
type Conversations interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*conversation.State, error)
	AppendExchange(ctx context.Context, userID uuid.UUID, userText, reply string, also ...conversation.TxFunc) (*conversation.State, error)
	History(s *conversation.State) []conversation.Turn
	Lookup(ctx context.Context, userID uuid.UUID) ([]conversation.Turn, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// InsightRecorder writes the audit record inside the exchange transaction.
type InsightRecorder interface {
	CreateTx(ctx context.Context, tx *sql.Tx, in *insight.Insight) error
}

// Reply is what one interaction returns to the caller.
type Reply struct {
	Response     string     `json:"response"`
	RiskLevel    risk.Level `json:"riskLevel"`
	Reasons      []string   `json:"reasons"`
	TTSSuggested bool       `json:"textToSpeech"`
}

type Options struct {
	// RecentWindow bounds the records and symptom entries read per request.
	RecentWindow int
	// HistoryLimit bounds the turns handed to the model; <= 0 sends all.
	HistoryLimit int
}

type Service interface {
	Interact(ctx context.Context, userID uuid.UUID, message string, voiceRequested bool) (*Reply, error)
	History(ctx context.Context, userID uuid.UUID) ([]conversation.Turn, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) error
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
	TranscribeAudio(ctx context.Context, audio []byte) (string, error)
}

type service struct {
	health   HealthSource
	convs    Conversations
	insights InsightRecorder
	model    agent.Generator
	tts      agent.TTSClient
	stt      agent.STTClient
	opts     Options
}

func NewService(hs HealthSource, convs Conversations, insights InsightRecorder, model agent.Generator, tts agent.TTSClient, stt agent.STTClient, opts Options) Service {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 10
	}
	return &service{
		health:   hs,
		convs:    convs,
		insights: insights,
		model:    model,
		tts:      tts,
		stt:      stt,
		opts:     opts,
	}
}

// Interact runs one assistant turn. Nothing is written unless the model
// answered and the request is still alive. The exchange and its insight are
// then stored together or not at all.
func (s *service) Interact(ctx context.Context, userID uuid.UUID, message string, voiceRequested bool) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &ValidationError{Err: ErrEmptyMessage}
	}

	// 1. Recent health context
	records, entries, err := s.health.Recent(ctx, userID, s.opts.RecentWindow)
	if err != nil {
		return nil, &ServiceError{Op: "load health context", Err: err}
	}

	// 2. Snapshot + 3. Risk
	symptoms := health.Flatten(entries)
	assessment := risk.Assess(health.Snapshot(records), symptoms)

	// 4. Chat memory
	state, err := s.convs.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, &ServiceError{Op: "load conversation", Err: err}
	}

	// 5. Prompt
	prompt := BuildPrompt(PromptInput{
		Level:    assessment.Level,
		Symptoms: symptoms,
		Reasons:  assessment.Reasons,
		Message:  message,
	})
	history := promptHistory(s.convs.History(state), s.opts.HistoryLimit)

	// 6. Model
	response, err := s.model.Generate(ctx, prompt, history)
	if err != nil {
		return nil, &ServiceError{Op: "generate reply", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ServiceError{Op: "generate reply", Err: err}
	}

	// 7. Persist the exchange and its audit record in one transaction. A
	// cancel arriving after this point must not split the two writes.
	in := &insight.Insight{
		UserID:    userID,
		Input:     message,
		Response:  response,
		RiskLevel: assessment.Level,
	}
	recordInsight := func(ctx context.Context, tx *sql.Tx) error {
		return s.insights.CreateTx(ctx, tx, in)
	}
	if _, err := s.convs.AppendExchange(context.WithoutCancel(ctx), userID, message, response, recordInsight); err != nil {
		return nil, &ServiceError{Op: "save exchange", Err: err}
	}

	return &Reply{
		Response:     response,
		RiskLevel:    assessment.Level,
		Reasons:      assessment.Reasons,
		TTSSuggested: voiceRequested,
	}, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]conversation.Turn, error) {
	turns, err := s.convs.Lookup(ctx, userID)
	if err != nil {
		return nil, &ServiceError{Op: "load conversation", Err: err}
	}
	return turns, nil
}

func (s *service) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	if err := s.convs.Clear(ctx, userID); err != nil {
		return &ServiceError{Op: "clear conversation", Err: err}
	}
	return nil
}

func (s *service) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Err: fmt.Errorf("text is required")}
	}
	audio, err := s.tts.Synthesize(ctx, text, "")
	if err != nil {
		return nil, &ServiceError{Op: "synthesize speech", Err: err}
	}
	return audio, nil
}

func (s *service) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &ValidationError{Err: fmt.Errorf("audio is required")}
	}
	text, err := s.stt.Transcribe(ctx, audio)
	if err != nil {
		return "", &ServiceError{Op: "transcribe audio", Err: err}
	}
	return strings.TrimSpace(text), nil
}
