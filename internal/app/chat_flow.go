package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"tutorchat/internal/answer"
	"tutorchat/internal/backend"
	"tutorchat/internal/model"
	"tutorchat/internal/pkg/logger"
)

// Fixed operational parameters sent with every ask.
const (
	DefaultAssistanceLevel = model.LevelExamPrep
	DefaultAnswerMode      = model.ModeWorked
)

type AskBackend interface {
	Ask(ctx context.Context, identity string, req model.AskRequest) (*model.AskResponse, error)
}

// TranscriptSink receives successful exchanges. Failures are logged only.
type TranscriptSink interface {
	Record(ctx context.Context, exchange model.Exchange) error
}

// ChatState is what the answer panel shows.
type ChatState struct {
	Pending bool           `json:"pending"`
	Answer  string         `json:"answer"`
	Sources []model.Source `json:"sources"`
	Meta    map[string]any `json:"meta,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ChatFlow runs one ask round trip at a time from the panel's point of view:
// starting an ask clears the panel, and only the latest ask may fill it.
type ChatFlow struct {
	backend    AskBackend
	transcript TranscriptSink
	logger     *logger.Logger

	mu    sync.Mutex
	gen   uint64
	state ChatState
}

func NewChatFlow(backend AskBackend, transcript TranscriptSink, log *logger.Logger) *ChatFlow {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatFlow{
		backend:    backend,
		transcript: transcript,
		logger:     log,
		state:      ChatState{Sources: []model.Source{}},
	}
}

func (f *ChatFlow) State() ChatState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.state
	st.Sources = append([]model.Source(nil), f.state.Sources...)
	if st.Sources == nil {
		st.Sources = []model.Source{}
	}
	return st
}

// Ask validates inputs, posts the question and renders the sanitized answer.
// The result is always returned to the caller; it only reaches the panel if
// no newer ask started in the meantime.
func (f *ChatFlow) Ask(ctx context.Context, question, identity, courseID string) (*model.AnswerPayload, error) {
	question = strings.TrimSpace(question)
	identity = strings.TrimSpace(identity)
	courseID = strings.TrimSpace(courseID)

	gen := f.begin()

	if err := checkAsk(question, identity, courseID); err != nil {
		f.finish(gen, nil, err)
		return nil, err
	}

	started := time.Now()
	resp, err := f.backend.Ask(ctx, identity, model.AskRequest{
		CourseID:        courseID,
		Question:        question,
		AssistanceLevel: DefaultAssistanceLevel,
		Mode:            DefaultAnswerMode,
	})
	if err != nil {
		f.logger.Warn("ask failed",
			"identity_fp", logger.Fingerprint(identity),
			"course_id", courseID,
			"error", err,
		)
		f.finish(gen, nil, err)
		return nil, err
	}

	payload := &model.AnswerPayload{
		Answer:  answer.Sanitize(resp.Answer),
		Sources: resp.DisplaySources(),
		Meta:    resp.Meta,
	}
	if payload.Sources == nil {
		payload.Sources = []model.Source{}
	}
	f.logger.Info("ask answered",
		"identity_fp", logger.Fingerprint(identity),
		"course_id", courseID,
		"sources", len(payload.Sources),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	f.finish(gen, payload, nil)
	f.record(ctx, identity, courseID, question, payload)
	return payload, nil
}

func checkAsk(question, identity, courseID string) error {
	switch {
	case question == "":
		return precondition(MsgQuestionRequired)
	case identity == "":
		return precondition(MsgIdentityRequired)
	case courseID == "":
		return precondition(MsgCourseRequiredAsk)
	}
	return nil
}

func (f *ChatFlow) begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.state = ChatState{Pending: true, Sources: []model.Source{}}
	return f.gen
}

func (f *ChatFlow) finish(gen uint64, payload *model.AnswerPayload, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	st := ChatState{Sources: []model.Source{}}
	if err != nil {
		st.Error = backend.UserMessage(err)
	} else if payload != nil {
		st.Answer = payload.Answer
		st.Sources = payload.Sources
		st.Meta = payload.Meta
	}
	f.state = st
}

func (f *ChatFlow) record(ctx context.Context, identity, courseID, question string, payload *model.AnswerPayload) {
	if f.transcript == nil {
		return
	}
	err := f.transcript.Record(ctx, model.Exchange{
		Identity:    identity,
		CourseID:    courseID,
		Question:    question,
		Answer:      payload.Answer,
		SourceCount: len(payload.Sources),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		f.logger.Warn("record transcript failed", "course_id", courseID, "error", err)
	}
}
