package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/queue"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

type FeedbackService interface {
	// Submit sends f, queueing it when the server is unreachable.
	Submit(ctx context.Context, f models.Feedback) (Result, error)
}

type feedbackService struct {
	client client.Client
	queue  *queue.Queue
	logger logging.Logger
}

func NewFeedbackService(c client.Client, q *queue.Queue, logger logging.Logger) FeedbackService {
	return &feedbackService{client: c, queue: q, logger: logger}
}

func (s *feedbackService) Submit(ctx context.Context, f models.Feedback) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	a := models.NewSubmitFeedback(f)
	method, err := a.Kind.Method()
	if err != nil {
		return Result{}, err
	}

	_, err = s.client.Do(ctx, method, a.Endpoint, a.Payload)
	if err == nil {
		return Result{}, nil
	}
	if !errors.Is(err, client.ErrUnavailable) {
		return Result{}, fmt.Errorf("submit feedback: %w", err)
	}

	queued, err := s.queue.Enqueue(ctx, a)
	if err != nil {
		return Result{}, err
	}
	s.logger.Info(ctx, "feedback queued for sync", "action_id", queued.ID)
	return Result{Queued: true, ActionID: queued.ID}, nil
}
