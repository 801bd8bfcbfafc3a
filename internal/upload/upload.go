// Package upload stores onboarding documents in the object store.
//
// A document is uploaded in two moves: the API issues a presigned URL, then
// the file body is PUT to that URL. Nothing else of the object-store protocol
// is used.
package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"onboard/internal/api"
	"onboard/internal/output"
	"onboard/internal/steps"
)

// Presigner issues presigned upload URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, token, filename, contentType string) (*api.PresignResult, error)
}

// ProgressFunc receives the bytes written so far and the total size (0 when unknown).
type ProgressFunc func(written, total int64)

// Uploader presigns and PUTs document attachments.
type Uploader struct {
	presigner  Presigner
	http       *http.Client
	onProgress ProgressFunc
}

var _ steps.Uploader = (*Uploader)(nil)

// NewUploader creates an Uploader using the given presigner.
func NewUploader(p Presigner) *Uploader {
	return &Uploader{presigner: p, http: http.DefaultClient}
}

// SetHTTPClient replaces the client used for the PUT.
func (u *Uploader) SetHTTPClient(hc *http.Client) {
	u.http = hc
}

// SetProgressCallback configures an optional upload progress callback.
func (u *Uploader) SetProgressCallback(fn ProgressFunc) {
	u.onProgress = fn
}

// Upload presigns a URL for the attachment, PUTs the body and returns the
// object key.
func (u *Uploader) Upload(ctx context.Context, token string, a steps.Attachment) (string, error) {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := u.presigner.PresignUpload(ctx, token, a.Name, contentType)
	if err != nil {
		return "", err
	}

	body := a.Body
	if body == nil {
		body = strings.NewReader("")
	}
	if err := u.Put(ctx, res.UploadURL, contentType, body, a.Size); err != nil {
		return "", err
	}
	return res.Key, nil
}

// Put sends body to a presigned URL in a single PUT. Any non-2xx status is
// an error.
func (u *Uploader) Put(ctx context.Context, url, contentType string, body io.Reader, size int64) error {
	if u.onProgress != nil {
		body = &progressReader{r: body, total: size, fn: u.onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		output.Debugf("upload: PUT -> %d", resp.StatusCode)
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return nil
}

// ObjectKey builds a collision-free object key for a user's document.
func ObjectKey(userID, docType, filename string) string {
	if docType == "" {
		docType = "misc"
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	return fmt.Sprintf("documents/%s/%s/%s-%s", userID, docType, uuid.NewString(), name)
}

type progressReader struct {
	r       io.Reader
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.fn(p.written, p.total)
	}
	return n, err
}
