package model

import (
	"encoding/json"
	"strings"
)

type AssistanceLevel string

const (
	LevelNovice   AssistanceLevel = "novice"
	LevelExamPrep AssistanceLevel = "exam_prep"
	LevelAdvanced AssistanceLevel = "advanced"
)

type AnswerMode string

const (
	ModeWorked   AnswerMode = "worked"
	ModeSocratic AnswerMode = "socratic"
	ModeExam     AnswerMode = "exam"
)

func (l AssistanceLevel) Valid() bool {
	switch l {
	case LevelNovice, LevelExamPrep, LevelAdvanced:
		return true
	}
	return false
}

func (m AnswerMode) Valid() bool {
	switch m {
	case ModeWorked, ModeSocratic, ModeExam:
		return true
	}
	return false
}

// AskRequest is the body of POST /chat/ask.
type AskRequest struct {
	CourseID        string          `json:"course_id"`
	Question        string          `json:"question"`
	AssistanceLevel AssistanceLevel `json:"assistance_level"`
	Mode            AnswerMode      `json:"mode"`
}

// Source is one citation shown next to an answer.
type Source struct {
	Marker  string   `json:"marker"`
	Markers []string `json:"markers,omitempty"`
	Title   string   `json:"title,omitempty"`
	URL     string   `json:"url,omitempty"`
	Page    *int     `json:"page,omitempty"`
	Score   *float64 `json:"score,omitempty"`
	IsImage bool     `json:"is_image,omitempty"`
	Caption string   `json:"caption,omitempty"`
}

// sourceWire accepts both the plain and the de-duplicated source shapes.
type sourceWire struct {
	Marker    string   `json:"marker"`
	Markers   []string `json:"markers"`
	Title     *string  `json:"title"`
	URL       *string  `json:"url"`
	Page      *int     `json:"page"`
	Score     *float64 `json:"score"`
	BestScore *float64 `json:"best_score"`
	IsImage   bool     `json:"is_image"`
	Caption   *string  `json:"caption"`
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var w sourceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Source{
		Marker:  w.Marker,
		Markers: w.Markers,
		Title:   deref(w.Title),
		URL:     deref(w.URL),
		Page:    w.Page,
		Score:   w.Score,
		IsImage: w.IsImage,
		Caption: deref(w.Caption),
	}
	if s.Marker == "" && len(s.Markers) > 0 {
		s.Marker = strings.Join(s.Markers, ", ")
	}
	if s.Score == nil {
		s.Score = w.BestScore
	}
	if s.Page != nil && *s.Page < 0 {
		s.Page = nil
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AskResponse is the raw body of a successful POST /chat/ask.
type AskResponse struct {
	Answer       string         `json:"answer"`
	Sources      []Source       `json:"sources"`
	SourcesDedup []Source       `json:"sources_dedup"`
	Meta         map[string]any `json:"meta"`
}

// DisplaySources prefers the de-duplicated list when the backend supplies one.
func (r AskResponse) DisplaySources() []Source {
	if r.SourcesDedup != nil {
		return r.SourcesDedup
	}
	return r.Sources
}

// AnswerPayload is what the UI renders for one ask.
type AnswerPayload struct {
	Answer  string         `json:"answer"`
	Sources []Source       `json:"sources"`
	Meta    map[string]any `json:"meta,omitempty"`
}
