package steps

import (
	"context"
	"sync"
	"time"
)

// AgreementDetails is the payload of the agreement step.
type AgreementDetails struct {
	Accepted   bool   `json:"accepted" yaml:"accepted"`
	AcceptedAt string `json:"acceptedAt,omitempty" yaml:"-"`
}

var agreementFields = []string{"accepted"}

// Agreement is the terms acknowledgement step. It has no draft state.
type Agreement struct {
	base

	dataMu sync.Mutex
	data   AgreementDetails
}

// NewAgreement creates the agreement step.
func NewAgreement(index, threshold int, title, endpoint string, deps Deps) *Agreement {
	return &Agreement{
		base: base{
			kind: KindAgreement, title: title, endpoint: endpoint,
			index: index, threshold: threshold, deps: deps,
		},
	}
}

// Accept records the acknowledgement choice.
func (a *Agreement) Accept(accepted bool) {
	a.dataMu.Lock()
	a.data.Accepted = accepted
	a.dataMu.Unlock()
	a.markDirty()
}

// Data returns the current form data.
func (a *Agreement) Data() AgreementDetails {
	a.dataMu.Lock()
	defer a.dataMu.Unlock()
	return a.data
}

// Fields returns the form's field names in display order.
func (a *Agreement) Fields() []string { return agreementFields }

// Submit requires the acknowledgement and writes it with a timestamp.
func (a *Agreement) Submit(ctx context.Context) (bool, error) {
	d := a.Data()
	return a.submit(ctx,
		func() map[string]string {
			if !d.Accepted {
				return map[string]string{"accepted": "must be accepted to continue"}
			}
			return nil
		},
		func(context.Context) (any, error) {
			d.AcceptedAt = a.deps.now().UTC().Format(time.RFC3339)
			return d, nil
		},
	)
}
