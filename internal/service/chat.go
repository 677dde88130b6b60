package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vistachat/vistachat/internal/metrics"
	"github.com/vistachat/vistachat/internal/model"
)

// DefaultHistoryContextLimit is the history size attached to chat replies.
const DefaultHistoryContextLimit = 10

// RawImage is an uploaded image as received.
type RawImage struct {
	Data     []byte
	MIMEType string
	Filename string
}

// ChatInput is one chat request.
type ChatInput struct {
	Text       string
	Image      *RawImage
	Credential string
}

// ChatResult is what a successful chat request returns.
type ChatResult struct {
	SessionID   string
	IsAnonymous bool
	AIResponse  string
	ModelUsed   string
	History     []*model.Interaction
}

// ChatService runs one interaction end to end.
type ChatService struct {
	verifier     *CredentialVerifier
	model        Model
	uploader     ImageUploader
	interactions InteractionStore
	historyLimit int
	metrics      metrics.Recorder
	logger       *slog.Logger
	now          func() time.Time
}

// ChatServiceConfig wires a ChatService.
type ChatServiceConfig struct {
	Verifier     *CredentialVerifier
	Model        Model
	Uploader     ImageUploader
	Interactions InteractionStore
	HistoryLimit int
	Metrics      metrics.Recorder
	Logger       *slog.Logger
}

// NewChatService creates a ChatService. Verifier, Model, Uploader and
// Interactions are required.
func NewChatService(cfg ChatServiceConfig) (*ChatService, error) {
	switch {
	case cfg.Verifier == nil:
		return nil, errors.New("chat service: credential verifier is required")
	case cfg.Model == nil:
		return nil, errors.New("chat service: model is required")
	case cfg.Uploader == nil:
		return nil, errors.New("chat service: image uploader is required")
	case cfg.Interactions == nil:
		return nil, errors.New("chat service: interaction store is required")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryContextLimit
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &ChatService{
		verifier:     cfg.Verifier,
		model:        cfg.Model,
		uploader:     cfg.Uploader,
		interactions: cfg.Interactions,
		historyLimit: cfg.HistoryLimit,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		now:          time.Now,
	}, nil
}

// Handle runs identity, validation, upload, model call, record write and
// history fetch in that order. Only invalid input, an image-only request
// whose upload failed, and model failure are returned as errors.
func (s *ChatService) Handle(ctx context.Context, in ChatInput) (*ChatResult, error) {
	identity := ResolveIdentity(s.verifier.Verify(ctx, in.Credential))
	logger := s.logger.With("session_id", identity.SessionID, "anonymous", identity.IsAnonymous())

	hasText := strings.TrimSpace(in.Text) != ""
	hasImage := in.Image != nil && len(in.Image.Data) > 0
	if !hasText && !hasImage {
		s.metrics.IncChatRequest(metrics.OutcomeInvalidInput)
		return nil, ErrInvalidInput
	}

	prompt := model.Prompt{Text: in.Text}
	if !hasText {
		prompt.Text = model.DescribeImagePrompt
	}

	var imageURL *string
	if hasImage {
		mimeType := in.Image.MIMEType
		if mimeType == "" {
			mimeType = model.DefaultImageMIMEType
		}

		url, err := s.uploader.Upload(ctx, in.Image.Data, mimeType, in.Image.Filename)
		switch {
		case err != nil && !hasText:
			logger.ErrorContext(ctx, "image upload failed with no text fallback", "error", err)
			s.metrics.IncChatRequest(metrics.OutcomeUpstreamUnavailable)
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		case err != nil:
			logger.WarnContext(ctx, "image upload failed, continuing with text only", "error", err)
			s.metrics.IncImageUploadAbsorbed()
		default:
			if url != "" {
				imageURL = &url
			}
			prompt.Image = in.Image.Data
			prompt.MIMEType = mimeType
		}
	}

	start := time.Now()
	reply, err := s.model.Generate(ctx, prompt)
	s.metrics.ObserveModelDuration(time.Since(start))
	if err != nil {
		logger.ErrorContext(ctx, "model invocation failed", "error", err)
		s.metrics.IncChatRequest(metrics.OutcomeModelFailed)
		return nil, fmt.Errorf("%w: %v", ErrModelInvocationFailed, err)
	}

	rec := &model.Interaction{
		ID:            ulid.Make().String(),
		SessionID:     identity.SessionID,
		AccountID:     identity.AccountIDPtr(),
		IsAnonymous:   identity.IsAnonymous(),
		UserInputText: in.Text,
		AIResponse:    reply,
		ImageURL:      imageURL,
		ModelUsed:     s.model.Name(),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.persist(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "interaction record not saved", "error", err, "record_id", rec.ID)
		s.metrics.IncRecordWriteFailed()
	}

	history := make([]*model.Interaction, 0)
	if !identity.IsAnonymous() {
		records, err := s.interactions.ListInteractionsByAccount(ctx, identity.AccountID, s.historyLimit)
		if err != nil {
			logger.ErrorContext(ctx, "history read failed, returning empty history", "error", err)
			s.metrics.IncHistoryReadFailed()
		} else {
			history = records
		}
	}

	s.metrics.IncChatRequest(metrics.OutcomeOK)
	return &ChatResult{
		SessionID:   identity.SessionID,
		IsAnonymous: identity.IsAnonymous(),
		AIResponse:  reply,
		ModelUsed:   rec.ModelUsed,
		History:     history,
	}, nil
}

// persist is the record writer: one insert, no deduplication.
func (s *ChatService) persist(ctx context.Context, rec *model.Interaction) error {
	if rec.IsAnonymous != (rec.AccountID == nil) {
		return fmt.Errorf("%w: anonymity flag disagrees with account id", ErrPersistenceFailed)
	}
	if err := s.interactions.AppendInteraction(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}
