package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"chatroom-backend/internal/ai"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
)

// Processor consumes message-processing tasks: it marks the row processing,
// calls the AI provider, and records either the completion or the failure.
type Processor struct {
	DB        *gorm.DB
	Generator ai.Generator
}

// Register attaches the processor's handlers to a queue server.
func (p *Processor) Register(srv queue.Server) {
	srv.Register(TaskTypeProcessMessage, p.HandleProcessMessage)
}

// HandleProcessMessage is one delivery of a message-processing job.
//
// Returning an error hands the task back to the queue's retry policy, so the
// row is moved to "failed" first: between deliveries the caller sees an
// honest status, and a successful retry moves it back through processing to
// completed. A row already completed by an earlier delivery is acknowledged
// without work.
func (p *Processor) HandleProcessMessage(ctx context.Context, t queue.Task) error {
	var payload ProcessMessagePayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		// Malformed payloads never heal; retrying burns attempts for nothing.
		log.Error().Err(err).Str("task_type", t.Type).Msg("discarding malformed task payload")
		return nil
	}
	if payload.MessageID == "" {
		log.Error().Str("task_type", t.Type).Msg("discarding task without message id")
		return nil
	}

	l := log.With().
		Str("message_id", payload.MessageID).
		Str("chatroom_id", payload.ChatroomID).
		Str("user_id", payload.UserID).
		Logger()

	if err := repo.MarkMessageProcessing(ctx, p.DB, payload.MessageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already completed, or the row is gone. Either way there is
			// nothing left to do for this delivery.
			l.Debug().Msg("message not eligible for processing, acknowledging")
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	reply, err := p.Generator.Generate(ctx, payload.Message)
	if err != nil {
		l.Warn().Err(err).Msg("ai generation failed")
		if ferr := repo.FailMessage(ctx, p.DB, payload.MessageID); ferr != nil && !errors.Is(ferr, gorm.ErrRecordNotFound) {
			l.Error().Err(ferr).Msg("could not record failure status")
		}
		return fmt.Errorf("generate response: %w", err)
	}

	if err := repo.CompleteMessage(ctx, p.DB, payload.MessageID, reply); err != nil {
		l.Error().Err(err).Msg("could not record completion")
		return fmt.Errorf("complete message: %w", err)
	}

	l.Info().Msg("message completed")
	return nil
}
