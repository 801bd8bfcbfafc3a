package steps

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DocumentDetails is the payload of the documents step.
type DocumentDetails struct {
	DocumentType string `json:"documentType" yaml:"documentType"`
	DocumentID   string `json:"documentId" yaml:"documentId"`
	FileKey      string `json:"fileKey,omitempty" yaml:"-"`
}

var documentFields = []string{"documentType", "documentId", "file"}

// Documents is the identity documents step. An attached file is uploaded to
// the object store before the step payload is written.
type Documents struct {
	base

	dataMu     sync.Mutex
	data       DocumentDetails
	attachment *Attachment
}

// NewDocuments creates the documents step.
func NewDocuments(index, threshold int, title, endpoint string, deps Deps) *Documents {
	return &Documents{
		base: base{
			kind: KindDocuments, title: title, endpoint: endpoint,
			index: index, threshold: threshold, deps: deps,
		},
	}
}

// Set replaces the form data and marks the step dirty.
func (d *Documents) Set(data DocumentDetails) {
	d.dataMu.Lock()
	d.data = data
	d.dataMu.Unlock()
	d.markDirty()
}

// Attach sets the file to upload on the next Submit.
func (d *Documents) Attach(a Attachment) {
	d.dataMu.Lock()
	d.attachment = &a
	d.dataMu.Unlock()
	d.markDirty()
}

// Data returns the current form data.
func (d *Documents) Data() DocumentDetails {
	d.dataMu.Lock()
	defer d.dataMu.Unlock()
	return d.data
}

// Fields returns the form's field names in display order.
func (d *Documents) Fields() []string { return documentFields }

// Submit validates the form, uploads any attachment and writes the payload.
func (d *Documents) Submit(ctx context.Context) (bool, error) {
	d.dataMu.Lock()
	data, att := d.data, d.attachment
	d.dataMu.Unlock()

	return d.submit(ctx,
		func() map[string]string {
			errs := map[string]string{}
			required(errs, "documentId", data.DocumentID)
			if att != nil && att.Name == "" {
				errs["file"] = "must have a file name"
			}
			return errs
		},
		func(ctx context.Context) (any, error) {
			if att == nil {
				return data, nil
			}
			if d.deps.Uploader == nil {
				return nil, errors.New("no uploader configured")
			}
			key, err := d.deps.Uploader.Upload(ctx, d.deps.Token, *att)
			if err != nil {
				return nil, fmt.Errorf("upload failed: %w", err)
			}
			data.FileKey = key

			d.dataMu.Lock()
			d.data.FileKey = key
			d.attachment = nil
			d.dataMu.Unlock()
			return data, nil
		},
	)
}

// Save writes the current form data as a draft. Attachments are only
// uploaded on Submit.
func (d *Documents) Save(ctx context.Context) error {
	return d.save(ctx, d.Data())
}
