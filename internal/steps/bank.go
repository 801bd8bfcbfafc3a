package steps

import (
	"context"
	"strings"
	"sync"
)

// BankDetails is the payload of the bank details step.
type BankDetails struct {
	AccountHolder string `json:"accountHolder,omitempty" yaml:"accountHolder"`
	AccountNumber string `json:"accountNumber" yaml:"accountNumber"`
	// IFSC is the branch routing code.
	IFSC     string `json:"ifsc" yaml:"ifsc"`
	BankName string `json:"bankName,omitempty" yaml:"bankName"`
}

var bankFields = []string{"accountHolder", "accountNumber", "ifsc", "bankName"}

// Bank is the bank details step.
type Bank struct {
	base

	dataMu sync.Mutex
	data   BankDetails
}

// NewBank creates the bank details step.
func NewBank(index, threshold int, title, endpoint string, deps Deps) *Bank {
	return &Bank{
		base: base{
			kind: KindBank, title: title, endpoint: endpoint,
			index: index, threshold: threshold, deps: deps,
		},
	}
}

// Set replaces the form data and marks the step dirty.
func (b *Bank) Set(d BankDetails) {
	d.IFSC = strings.ToUpper(strings.TrimSpace(d.IFSC))
	b.dataMu.Lock()
	b.data = d
	b.dataMu.Unlock()
	b.markDirty()
}

// Data returns the current form data.
func (b *Bank) Data() BankDetails {
	b.dataMu.Lock()
	defer b.dataMu.Unlock()
	return b.data
}

// Fields returns the form's field names in display order.
func (b *Bank) Fields() []string { return bankFields }

// Submit validates the form and writes it.
func (b *Bank) Submit(ctx context.Context) (bool, error) {
	d := b.Data()
	return b.submit(ctx,
		func() map[string]string {
			errs := map[string]string{}
			required(errs, "accountNumber", d.AccountNumber)
			required(errs, "ifsc", d.IFSC)
			return errs
		},
		func(context.Context) (any, error) { return d, nil },
	)
}

// Save writes the current form data as a draft.
func (b *Bank) Save(ctx context.Context) error {
	return b.save(ctx, b.Data())
}
