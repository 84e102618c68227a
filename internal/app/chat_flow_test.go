package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorchat/internal/model"
)

type recordingSink struct {
	mu        sync.Mutex
	exchanges []model.Exchange
	err       error
}

func (s *recordingSink) Record(ctx context.Context, e model.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, e)
	return s.err
}

func TestChatFlowPreconditions(t *testing.T) {
	tests := []struct {
		name                         string
		question, identity, courseID string
		want                         string
	}{
		{"blank question", "   ", "u1", "c1", MsgQuestionRequired},
		{"no identity", "why?", "", "c1", MsgIdentityRequired},
		{"no course", "why?", "u1", " ", MsgCourseRequiredAsk},
		{"question checked first", "", "", "", MsgQuestionRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			flow := NewChatFlow(fb, nil, nil)

			_, err := flow.Ask(context.Background(), tt.question, tt.identity, tt.courseID)
			require.ErrorIs(t, err, ErrPrecondition)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.want, flow.State().Error)

			_, _, asks, _ := fb.counts()
			assert.Zero(t, asks)
		})
	}
}

func TestChatFlowSuccess(t *testing.T) {
	fb := newFakeBackend()
	fb.onAsk = func(req model.AskRequest) (*model.AskResponse, error) {
		return &model.AskResponse{
			Answer:       `Use \(u_t = k u_{xx}\) \text{see [1](http://doc)}`,
			Sources:      []model.Source{{Marker: "[1]"}, {Marker: "[2]"}},
			SourcesDedup: []model.Source{{Marker: "[1], [2]"}},
			Meta:         map[string]any{"mode": "worked"},
		}, nil
	}
	sink := &recordingSink{}
	flow := NewChatFlow(fb, sink, nil)

	payload, err := flow.Ask(context.Background(), " What is heat flow? ", "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, `Use $u_t = k u_{xx}$ \text{see [1]}`, payload.Answer)
	assert.Equal(t, []model.Source{{Marker: "[1], [2]"}}, payload.Sources)

	require.Len(t, fb.askCalls, 1)
	assert.Equal(t, model.AskRequest{
		CourseID:        "c1",
		Question:        "What is heat flow?",
		AssistanceLevel: model.LevelExamPrep,
		Mode:            model.ModeWorked,
	}, fb.askCalls[0])

	st := flow.State()
	assert.False(t, st.Pending)
	assert.Equal(t, payload.Answer, st.Answer)
	assert.Equal(t, "worked", st.Meta["mode"])
	assert.Empty(t, st.Error)

	require.Len(t, sink.exchanges, 1)
	assert.Equal(t, "u1", sink.exchanges[0].Identity)
	assert.Equal(t, 1, sink.exchanges[0].SourceCount)
}

func TestChatFlowFallsBackToPlainSources(t *testing.T) {
	fb := newFakeBackend()
	fb.onAsk = func(req model.AskRequest) (*model.AskResponse, error) {
		return &model.AskResponse{Answer: "a", Sources: []model.Source{{Marker: "[1]"}}}, nil
	}
	payload, err := NewChatFlow(fb, nil, nil).Ask(context.Background(), "q", "u", "c")
	require.NoError(t, err)
	assert.Equal(t, []model.Source{{Marker: "[1]"}}, payload.Sources)
}

func TestChatFlowTransportError(t *testing.T) {
	fb := newFakeBackend()
	fb.onAsk = func(req model.AskRequest) (*model.AskResponse, error) {
		return nil, statusErr(500)
	}
	sink := &recordingSink{}
	flow := NewChatFlow(fb, sink, nil)

	_, err := flow.Ask(context.Background(), "q", "u", "c")
	require.Error(t, err)
	assert.Equal(t, "HTTP 500", flow.State().Error)
	assert.Empty(t, sink.exchanges)
}

func TestChatFlowTranscriptFailureIsNotFatal(t *testing.T) {
	fb := newFakeBackend()
	sink := &recordingSink{err: errors.New("broker down")}
	payload, err := NewChatFlow(fb, sink, nil).Ask(context.Background(), "q", "u", "c")
	require.NoError(t, err)
	assert.Equal(t, "ok", payload.Answer)
}

func TestChatFlowSecondAskClearsFirst(t *testing.T) {
	fb := newFakeBackend()
	flow := NewChatFlow(fb, nil, nil)
	ctx := context.Background()

	_, err := flow.Ask(ctx, "first", "u", "c")
	require.NoError(t, err)
	require.Equal(t, "ok", flow.State().Answer)

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	fb.onAsk = func(req model.AskRequest) (*model.AskResponse, error) {
		if req.Question == "slow" {
			close(firstStarted)
			<-releaseFirst
			return &model.AskResponse{Answer: "stale answer"}, nil
		}
		return nil, statusErr(503)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		payload, err := flow.Ask(ctx, "slow", "u", "c")
		assert.NoError(t, err)
		assert.Equal(t, "stale answer", payload.Answer)
	}()
	<-firstStarted

	st := flow.State()
	assert.True(t, st.Pending)
	assert.Empty(t, st.Answer, "previous answer must be cleared when an ask starts")

	_, err = flow.Ask(ctx, "fast", "u", "c")
	require.Error(t, err)

	close(releaseFirst)
	<-done

	st = flow.State()
	assert.Equal(t, "HTTP 503", st.Error)
	assert.Empty(t, st.Answer, "stale answer must not be shown next to the newer error")
	assert.Empty(t, st.Sources)
	assert.False(t, st.Pending)
}
