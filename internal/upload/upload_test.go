package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/api"
	"onboard/internal/steps"
)

type stubPresigner struct {
	url string
	err error

	gotName string
	gotType string
}

func (s *stubPresigner) PresignUpload(ctx context.Context, token, filename, contentType string) (*api.PresignResult, error) {
	s.gotName, s.gotType = filename, contentType
	if s.err != nil {
		return nil, s.err
	}
	return &api.PresignResult{UploadURL: s.url, Key: "documents/u1/pan/abc-" + filename}, nil
}

func TestUploader_Upload(t *testing.T) {
	var gotBody, gotType, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody, gotType, gotMethod = string(data), r.Header.Get("Content-Type"), r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := &stubPresigner{url: srv.URL + "/bucket/obj?sig=1"}
	u := NewUploader(p)
	var progress []int64
	u.SetProgressCallback(func(written, total int64) { progress = append(progress, written) })

	key, err := u.Upload(context.Background(), "tok", steps.Attachment{
		Name: "pan.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.7"), Size: 8,
	})

	require.NoError(t, err)
	assert.Equal(t, "documents/u1/pan/abc-pan.pdf", key)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "%PDF-1.7", gotBody)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "pan.pdf", p.gotName)
	require.NotEmpty(t, progress)
	assert.Equal(t, int64(8), progress[len(progress)-1])
}

func TestUploader_DefaultContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := &stubPresigner{url: srv.URL}
	_, err := NewUploader(p).Upload(context.Background(), "tok", steps.Attachment{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", p.gotType)
}

func TestUploader_PutRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewUploader(&stubPresigner{url: srv.URL}).Upload(context.Background(), "tok", steps.Attachment{Name: "x"})
	assert.ErrorContains(t, err, "403")
}

func TestUploader_PresignFails(t *testing.T) {
	p := &stubPresigner{err: errors.New("no presign")}
	_, err := NewUploader(p).Upload(context.Background(), "tok", steps.Attachment{Name: "x"})
	assert.EqualError(t, err, "no presign")
}

func TestObjectKey(t *testing.T) {
	k1 := ObjectKey("u1", "pan", `C:\scans\pan card.pdf`)
	k2 := ObjectKey("u1", "pan", "pan card.pdf")

	assert.True(t, strings.HasPrefix(k1, "documents/u1/pan/"))
	assert.True(t, strings.HasSuffix(k1, "-pan card.pdf"))
	assert.NotEqual(t, k1, k2)

	assert.Contains(t, ObjectKey("u2", "", ""), "documents/u2/misc/")
}
