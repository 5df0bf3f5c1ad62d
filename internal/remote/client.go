// Package remote provides the typed HTTP client for the video service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/twardell/clipsync/internal/auth"
	apperrors "github.com/twardell/clipsync/internal/errors"
	"github.com/twardell/clipsync/internal/models"
)

// ProgressFunc receives transfer progress while a payload streams to the
// service.
type ProgressFunc func(loaded, total int64)

// Config configures the remote client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// UploadLimitBytes is the service's per-object size ceiling. Payloads
	// above it are rejected before any bytes are sent.
	UploadLimitBytes int64
}

// Client talks to the video service's CRUD+upload API.
type Client struct {
	baseURL     string
	http        *http.Client
	session     *auth.Session
	uploadLimit int64
}

// NewClient creates a Client. Session supplies the bearer token attached to
// every request.
func NewClient(cfg Config, session *auth.Session) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := cfg.UploadLimitBytes
	if limit == 0 {
		limit = 50 * 1024 * 1024
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		session:     session,
		uploadLimit: limit,
	}
}

// MaxUploadBytes returns the service's payload size ceiling.
func (c *Client) MaxUploadBytes() int64 {
	return c.uploadLimit
}

// ListRecords returns all records visible to the current user.
func (c *Client) ListRecords(ctx context.Context) ([]*models.Record, error) {
	var dtos []videoDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/videos/", nil, &dtos); err != nil {
		return nil, err
	}
	records := make([]*models.Record, 0, len(dtos))
	for i := range dtos {
		records = append(records, dtos[i].toRecord())
	}
	return records, nil
}

// GetRecord returns one record by id. A missing record is a distinct
// REMOTE_NOT_FOUND error.
func (c *Client) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	var dto videoDTO
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/videos/"+id, nil, &dto); err != nil {
		return nil, err
	}
	return dto.toRecord(), nil
}

// CreateRecord registers metadata for a new record. The service issues the
// authoritative id; the cloud path stays unset until the payload is uploaded.
func (c *Client) CreateRecord(ctx context.Context, rec *models.Record) (*models.Record, error) {
	req := createVideoRequest{
		Filename:   rec.Filename,
		LocalKey:   rec.ID,
		SizeBytes:  rec.SizeBytes,
		DurationMS: rec.DurationMS,
	}
	var dto videoDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/videos/", req, &dto); err != nil {
		return nil, err
	}
	return dto.toRecord(), nil
}

// RenameRecord updates a record's filename and returns the updated record.
func (c *Client) RenameRecord(ctx context.Context, id, newName string) (*models.Record, error) {
	var dto videoDTO
	if err := c.doJSON(ctx, http.MethodPatch, "/api/v1/videos/"+id, updateVideoRequest{Filename: newName}, &dto); err != nil {
		return nil, err
	}
	return dto.toRecord(), nil
}

// DeleteRecord deletes a record. Callers treat REMOTE_NOT_FOUND as an
// already-applied outcome.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/videos/"+id, nil, nil)
}

// UploadPayload streams the binary payload for a record as a multipart form.
// The response does not carry the final record; callers must re-fetch it to
// observe the populated cloud path.
func (c *Client) UploadPayload(ctx context.Context, id, filename string, payload []byte, onProgress ProgressFunc) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := io.Reader(bytes.NewReader(payload))
		if onProgress != nil {
			src = &progressReader{r: src, total: int64(len(payload)), onProgress: onProgress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/videos/"+id+"/upload", pr)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to build upload request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, "upload request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}

// DownloadPayload fetches a binary payload from its cloud path, which is a
// full public URL.
func (c *Client) DownloadPayload(ctx context.Context, remotePath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remotePath, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "failed to build download request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransient, "download request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrTransient, "failed to read payload", err)
	}
	return data, nil
}

// Health probes the service's liveness endpoint. The caller bounds the probe
// with its context deadline.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to build health request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, "health probe failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}

// doJSON performs a JSON request and decodes the response into out when out
// is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternal, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.ErrTransient, "failed to decode response", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// statusError maps an HTTP status to the error taxonomy.
func (c *Client) statusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("remote returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.New(apperrors.ErrRemoteNotFound, msg)
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return apperrors.New(apperrors.ErrPayloadTooLarge, msg)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.New(apperrors.ErrUnauthenticated, msg)
	default:
		return apperrors.New(apperrors.ErrTransient, msg)
	}
}

// progressReader reports cumulative bytes read through it.
type progressReader struct {
	r          io.Reader
	total      int64
	loaded     int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.onProgress(p.loaded, p.total)
	}
	return n, err
}
