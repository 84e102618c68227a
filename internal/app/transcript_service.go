package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorchat/internal/model"
)

var ErrTranscriptDisabled = errors.New("transcript is disabled")

const (
	defaultHistoryLimit = 50
	// historyWindow is how many exchanges are read and cached per pair;
	// larger limits are clamped to it.
	historyWindow = 200
)

type ExchangePublisher interface {
	Publish(ctx context.Context, exchange model.Exchange) error
}

type ExchangeStore interface {
	ListByOwnerAndCourse(identity, courseID string, limit int) ([]model.Exchange, error)
}

type TranscriptCache interface {
	GetTranscript(ctx context.Context, identity, courseID string) ([]model.Exchange, bool, error)
	SetTranscript(ctx context.Context, identity, courseID string, exchanges []model.Exchange) error
	DeleteTranscript(ctx context.Context, identity, courseID string) error
	MarkDirty(ctx context.Context, identity, courseID string) error
	IsDirty(ctx context.Context, identity, courseID string) (bool, error)
}

// TranscriptService records answered questions asynchronously and lists
// them back per identity and course. The cache is optional.
type TranscriptService struct {
	publisher ExchangePublisher
	store     ExchangeStore
	cache     TranscriptCache
}

func NewTranscriptService(publisher ExchangePublisher, store ExchangeStore, cache TranscriptCache) *TranscriptService {
	return &TranscriptService{
		publisher: publisher,
		store:     store,
		cache:     cache,
	}
}

// Record enqueues the exchange for persistence. The cached transcript for
// the pair is invalidated first so readers never see a list without it
// once the worker has written it.
func (s *TranscriptService) Record(ctx context.Context, exchange model.Exchange) error {
	if s == nil || s.publisher == nil {
		return ErrTranscriptDisabled
	}
	if exchange.Identity == "" || exchange.CourseID == "" {
		return fmt.Errorf("record exchange: identity and course are required")
	}
	if exchange.CreatedAt.IsZero() {
		exchange.CreatedAt = time.Now()
	}

	if s.cache != nil {
		_ = s.cache.MarkDirty(ctx, exchange.Identity, exchange.CourseID)
		_ = s.cache.DeleteTranscript(ctx, exchange.Identity, exchange.CourseID)
	}
	if err := s.publisher.Publish(ctx, exchange); err != nil {
		return fmt.Errorf("enqueue exchange failed: %w", err)
	}
	return nil
}

// History returns the most recent exchanges first.
func (s *TranscriptService) History(ctx context.Context, identity, courseID string, limit int) ([]model.Exchange, error) {
	if s == nil || s.store == nil {
		return nil, ErrTranscriptDisabled
	}
	identity = strings.TrimSpace(identity)
	courseID = strings.TrimSpace(courseID)
	if identity == "" {
		return nil, precondition(MsgIdentityRequired)
	}
	if courseID == "" {
		return nil, precondition(MsgCourseRequired)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > historyWindow {
		limit = historyWindow
	}

	if s.cache != nil {
		dirty, err := s.cache.IsDirty(ctx, identity, courseID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.cache.GetTranscript(ctx, identity, courseID); cacheErr == nil && hit {
				return trimExchanges(cached, limit), nil
			}
		}
	}

	// The whole window is read so the cached list serves any limit.
	exchanges, err := s.store.ListByOwnerAndCourse(identity, courseID, historyWindow)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if dirty, dirtyErr := s.cache.IsDirty(ctx, identity, courseID); dirtyErr == nil && !dirty {
			_ = s.cache.SetTranscript(ctx, identity, courseID, exchanges)
		}
	}
	return trimExchanges(exchanges, limit), nil
}

func trimExchanges(exchanges []model.Exchange, limit int) []model.Exchange {
	if limit <= 0 || limit >= len(exchanges) {
		return exchanges
	}
	return exchanges[:limit]
}
