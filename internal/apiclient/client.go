// Package apiclient is an HTTP client for the bulk description API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"descriptai/internal/domain"
)

const defaultTimeout = 90 * time.Second

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code      int
	ErrorCode string
	Message   string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Code)
	}
	return fmt.Sprintf("api status %d: %s", e.Code, e.Message)
}

// RateLimited reports whether the server asked the caller to slow down.
func (e *StatusError) RateLimited() bool { return e.Code == http.StatusTooManyRequests }

// IsRateLimited reports whether err is a 429 StatusError.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}

type Options struct {
	BaseURL    string
	Token      string
	Locale     string
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	token   string
	locale  string
	client  *http.Client
}

// Job is the upload response.
type Job struct {
	ID  string      `json:"jobId"`
	Job *domain.Job `json:"job"`
}

// ChunkResponse is the per-item answer of a process-chunk call.
type ChunkResponse struct {
	Success      bool                        `json:"success"`
	Index        int                         `json:"index"`
	Descriptions *domain.Descriptions        `json:"result,omitempty"`
	Extracted    *domain.ExtractedAttributes `json:"extracted,omitempty"`
	Error        string                      `json:"error,omitempty"`
}

// Image is one file sent to the image chunk endpoint.
type Image struct {
	Filename string
	MimeType string
	Data     []byte
}

type Credits struct {
	CreditsRemaining int    `json:"credits_remaining"`
	PlanType         string `json:"plan_type"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("apiclient base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(opts.Token),
		locale:  strings.TrimSpace(opts.Locale),
		client:  client,
	}, nil
}

// UploadItems opens a text job.
func (c *Client) UploadItems(ctx context.Context, items []domain.WorkItem, voiceID string) (*Job, error) {
	body := map[string]any{"items": items}
	if voiceID != "" {
		body["voiceId"] = voiceID
	}
	var out Job
	if err := c.doJSON(ctx, http.MethodPost, "/v1/bulk/upload", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadImages opens an image job for count images.
func (c *Client) UploadImages(ctx context.Context, count int, voiceID string) (*Job, error) {
	body := map[string]any{"itemCount": count}
	if voiceID != "" {
		body["voiceId"] = voiceID
	}
	var out Job
	if err := c.doJSON(ctx, http.MethodPost, "/v1/bulk/upload-images", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessChunk submits one text item.
func (c *Client) ProcessChunk(ctx context.Context, jobID string, index int, item domain.WorkItem) (*ChunkResponse, error) {
	body := map[string]any{"jobId": jobID, "index": index, "item": item}
	var out ChunkResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/bulk/process-chunk", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessImageChunk submits one image as multipart form data.
func (c *Client) ProcessImageChunk(ctx context.Context, jobID string, index int, img Image) (*ChunkResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("jobId", jobID); err != nil {
		return nil, err
	}
	if err := mw.WriteField("index", strconv.Itoa(index)); err != nil {
		return nil, err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Filename))
	h.Set("Content-Type", img.MimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/bulk/process-image-chunk", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out ChunkResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStatus reads a job.
func (c *Client) GetStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	var out domain.Job
	if err := c.doJSON(ctx, http.MethodGet, "/v1/bulk/status/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetStatus finalizes a job. A nil errorMessage leaves the stored one alone.
func (c *Client) SetStatus(ctx context.Context, jobID string, status domain.JobStatus, errorMessage *string) error {
	body := map[string]any{"status": status}
	if errorMessage != nil {
		body["error_message"] = *errorMessage
	}
	return c.doJSON(ctx, http.MethodPatch, "/v1/bulk/status/"+url.PathEscape(jobID), body, nil)
}

// Credits reads the caller's balance.
func (c *Client) Credits(ctx context.Context) (*Credits, error) {
	var out Credits
	if err := c.doJSON(ctx, http.MethodGet, "/v1/user/credits", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = &buf
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return readStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &StatusError{Code: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Message != "" {
		se.ErrorCode = env.Error.Code
		se.Message = env.Error.Message
		return se
	}
	se.Message = strings.TrimSpace(string(data))
	return se
}
