package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorchat/internal/model"
)

func offlineBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/courses":
			if r.Header.Get("X-User-Id") != "u1" {
				_, _ = io.WriteString(w, `[]`)
				return
			}
			_, _ = io.WriteString(w, `[{"id":"c2","name":"PDEs","term":"Fall"},{"id":"c1","name":"Algo"}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/courses":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(model.Course{ID: "c9", Name: in["name"], Term: in["term"]})
		case r.URL.Path == "/chat/ask":
			_, _ = io.WriteString(w, `{"answer":"Heat flows \\(down\\) gradients.","sources":[{"marker":"[1]","title":"Lecture 3","page":4}],"sources_dedup":[{"markers":["[1]","[2]"],"title":"Lecture 3","best_score":0.91}]}`)
		case r.URL.Path == "/upload/pdf":
			_, _ = io.WriteString(w, `{"ok":true,"course_id":"c2","filename":"week1.pdf"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "none.toml"))
	t.Setenv("BACKEND_BASE_URL", srv.URL)
	t.Setenv("DEFAULT_USER_ID", "")
	t.Setenv("DEFAULT_COURSE_ID", "")
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCoursesMarksRepairedSelection(t *testing.T) {
	offlineBackend(t)
	out, err := runCLI(t, "-user", "u1", "-course", "gone", "courses")
	require.NoError(t, err)
	assert.Equal(t, "* c2\tPDEs — Fall\n  c1\tAlgo\n", out)
}

func TestCoursesWithoutIdentity(t *testing.T) {
	offlineBackend(t)
	_, err := runCLI(t, "courses")
	require.Error(t, err)
	assert.Equal(t, "No user id set.", err.Error())
}

func TestAskPrintsSanitizedAnswerAndDedupSources(t *testing.T) {
	offlineBackend(t)
	out, err := runCLI(t, "-user", "u1", "-plain", "ask", "why", "heat?")
	require.NoError(t, err)
	assert.Contains(t, out, "Course: PDEs — Fall")
	assert.Contains(t, out, "Heat flows $down$ gradients.")
	assert.Contains(t, out, "[1], [2] Lecture 3 (score 0.91)")
	assert.NotContains(t, out, "p. 4")
}

func TestAskWithoutQuestion(t *testing.T) {
	offlineBackend(t)
	_, err := runCLI(t, "-user", "u1", "ask")
	require.Error(t, err)
	assert.Equal(t, "Please enter a question.", err.Error())
}

func TestCreateRequiresName(t *testing.T) {
	offlineBackend(t)
	_, err := runCLI(t, "-user", "u1", "create", "-term", "Fall")
	require.Error(t, err)
	assert.Equal(t, "Course name is required.", err.Error())

	out, err := runCLI(t, "-user", "u1", "create", "-name", "Optics")
	require.NoError(t, err)
	assert.Equal(t, "Created Optics (c9)\n", out)
}

func TestUploadChecksFileType(t *testing.T) {
	offlineBackend(t)
	dir := t.TempDir()

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain"), 0o600))
	_, err := runCLI(t, "-user", "u1", "upload", notes)
	require.Error(t, err)
	assert.Equal(t, "Only PDF files are allowed.", err.Error())

	pdf := filepath.Join(dir, "week1.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 not really"), 0o600))
	out, err := runCLI(t, "-user", "u1", "upload", pdf)
	require.NoError(t, err)
	assert.Equal(t, "Uploaded PDF: week1.pdf\n", out)
}

func TestFormatSource(t *testing.T) {
	page := 2
	score := 0.5
	assert.Equal(t, "[3] Slides, p. 2 [image] Figure 1 (score 0.50) <http://x>", formatSource(model.Source{
		Marker: "[3]", Title: "Slides", Page: &page, IsImage: true, Caption: "Figure 1", Score: &score, URL: "http://x",
	}))
}
