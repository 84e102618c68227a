package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"tutorchat/internal/model"
)

const IdentityHeader = "X-User-Id"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a backend client. A nil httpClient uses a client with no
// explicit timeout, leaving deadlines to the caller's context.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListCourses(ctx context.Context, identity string) ([]model.Course, error) {
	var courses []model.Course
	if err := c.doJSON(ctx, "list courses", http.MethodGet, "/courses", identity, nil, &courses); err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []model.Course{}
	}
	return courses, nil
}

func (c *Client) GetCourse(ctx context.Context, identity, courseID string) (*model.Course, error) {
	var course model.Course
	path := "/courses/" + url.PathEscape(courseID)
	if err := c.doJSON(ctx, "get course", http.MethodGet, path, identity, nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) CreateCourse(ctx context.Context, identity, name, term string) (*model.Course, error) {
	body := map[string]string{
		"name": name,
		"term": term,
	}
	var course model.Course
	if err := c.doJSON(ctx, "create course", http.MethodPost, "/courses", identity, body, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// Ask posts one question. Unknown assistance levels or modes are refused
// before any request is made.
func (c *Client) Ask(ctx context.Context, identity string, req model.AskRequest) (*model.AskResponse, error) {
	if !req.AssistanceLevel.Valid() {
		return nil, fmt.Errorf("ask: invalid assistance level %q", req.AssistanceLevel)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("ask: invalid mode %q", req.Mode)
	}
	var out model.AskResponse
	if err := c.doJSON(ctx, "ask", http.MethodPost, "/chat/ask", identity, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload posts a multipart {course_id, file} body to /upload/pdf or
// /upload/image. The client copies body into the request as it goes and
// does not impose a size limit; callers bound what they pass in.
func (c *Client) Upload(
	ctx context.Context,
	identity string,
	kind model.UploadKind,
	courseID string,
	filename string,
	contentType string,
	body io.Reader,
) (*model.UploadReceipt, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, courseID, filename, contentType, body))
	}()

	endpoint := c.baseURL + "/upload/" + string(kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(IdentityHeader, identity)

	var receipt model.UploadReceipt
	if err := c.do(req, "upload "+string(kind), &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Health calls GET /healthz and reports whether the backend considers its
// own dependencies reachable.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.doJSON(ctx, "health", http.MethodGet, "/healthz", "", nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("backend reports unhealthy")
	}
	return nil
}

func writeUploadForm(mw *multipart.Writer, courseID, filename, contentType string, body io.Reader) error {
	if err := mw.WriteField("course_id", courseID); err != nil {
		return fmt.Errorf("write course_id field failed: %w", err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part failed: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("copy file part failed: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *Client) doJSON(ctx context.Context, op, method, path, identity string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request failed: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request failed: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if identity != "" {
		req.Header.Set(IdentityHeader, identity)
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response failed: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s response failed: %w", op, err)
	}
	return nil
}
