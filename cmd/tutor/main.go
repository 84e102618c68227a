// Command tutor is a terminal client for the tutor backend.
//
//	tutor [-user ID] [-course ID] courses
//	tutor [-user ID] create -name NAME [-term TERM]
//	tutor [-user ID] [-course ID] ask QUESTION...
//	tutor [-user ID] [-course ID] upload [-kind pdf|image] PATH
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"tutorchat/internal/app"
	"tutorchat/internal/backend"
	"tutorchat/internal/config"
	"tutorchat/internal/model"
	"tutorchat/internal/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	out     io.Writer
	plain   bool
	courses *app.CourseCoordinator
	chat    *app.ChatFlow
	uploads *app.UploadFlow
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("tutor", flag.ContinueOnError)
	fs.SetOutput(out)
	userFlag := fs.String("user", cfg.Defaults.UserID, "user id sent as "+backend.IdentityHeader)
	courseFlag := fs.String("course", cfg.Defaults.CourseID, "course id")
	backendFlag := fs.String("backend", cfg.Backend.BaseURL, "tutor backend base URL")
	plainFlag := fs.Bool("plain", false, "print answers without terminal rendering")
	verboseFlag := fs.Bool("v", false, "log to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	log := logger.Nop()
	if *verboseFlag {
		if log, err = logger.New(logger.Options{Mode: cfg.Log.Mode}); err != nil {
			return err
		}
		defer log.Sync()
	}

	client := backend.NewClient(*backendFlag, &http.Client{})
	c := &cli{
		out:     out,
		plain:   *plainFlag,
		courses: app.NewCourseCoordinator(client, log, *userFlag, *courseFlag),
		chat:    app.NewChatFlow(client, nil, log),
		uploads: app.NewUploadFlow(client, log, app.WithMaxImageBytes(cfg.MaxImageBytes())),
	}
	c.courses.Init(ctx)

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "courses":
		return c.listCourses()
	case "create":
		return c.createCourse(ctx, rest)
	case "ask":
		return c.ask(ctx, strings.Join(rest, " "))
	case "upload":
		return c.upload(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) listCourses() error {
	st := c.courses.Snapshot()
	if st.Phase == app.PhaseNoIdentity {
		return errors.New(app.MsgIdentityRequired)
	}
	if len(st.Courses) == 0 {
		fmt.Fprintln(c.out, "No courses yet. Create one with: tutor create -name NAME")
		return nil
	}
	for _, course := range st.Courses {
		marker := " "
		if course.ID == st.SelectedCourseID {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s\t%s\n", marker, course.ID, course.Label())
	}
	return nil
}

func (c *cli) createCourse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(c.out)
	name := fs.String("name", "", "course name")
	term := fs.String("term", "", "optional term, e.g. Fall 2025")
	if err := fs.Parse(args); err != nil {
		return err
	}

	course, err := c.courses.CreateCourse(ctx, *name, *term)
	if err != nil {
		return errors.New(backend.UserMessage(err))
	}
	fmt.Fprintf(c.out, "Created %s (%s)\n", course.Label(), course.ID)
	return nil
}

func (c *cli) ask(ctx context.Context, question string) error {
	st := c.courses.Snapshot()
	if st.SelectedCourseLabel != "" {
		fmt.Fprintf(c.out, "Course: %s\n\n", st.SelectedCourseLabel)
	}

	payload, err := c.chat.Ask(ctx, question, st.Identity, st.SelectedCourseID)
	if err != nil {
		return errors.New(backend.UserMessage(err))
	}

	rendered, err := c.render(payload.Answer)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, rendered)

	if len(payload.Sources) > 0 {
		fmt.Fprintln(c.out, "Sources:")
		for _, s := range payload.Sources {
			fmt.Fprintln(c.out, "  "+formatSource(s))
		}
	}
	return nil
}

func (c *cli) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(c.out)
	kind := fs.String("kind", "pdf", "pdf or image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var file *model.UploadFile
	if path := fs.Arg(0); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		file = &model.UploadFile{Name: filepath.Base(path), Size: info.Size(), Body: f}
	}

	st := c.courses.Snapshot()
	result, err := c.uploads.Upload(ctx, file, model.UploadKind(*kind), st.Identity, st.SelectedCourseID)
	if err != nil {
		return errors.New(backend.UserMessage(err))
	}
	fmt.Fprintln(c.out, result.Message)
	return nil
}

func (c *cli) render(markdown string) (string, error) {
	if c.plain {
		return markdown, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("init renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render answer: %w", err)
	}
	return strings.TrimRight(out, "\n"), nil
}

func formatSource(s model.Source) string {
	var b strings.Builder
	b.WriteString(s.Marker)
	if s.Title != "" {
		b.WriteString(" " + s.Title)
	}
	if s.Page != nil {
		fmt.Fprintf(&b, ", p. %d", *s.Page)
	}
	if s.IsImage {
		b.WriteString(" [image]")
		if s.Caption != "" {
			b.WriteString(" " + s.Caption)
		}
	}
	if s.Score != nil {
		fmt.Fprintf(&b, " (score %.2f)", *s.Score)
	}
	if s.URL != "" {
		b.WriteString(" <" + s.URL + ">")
	}
	return b.String()
}
