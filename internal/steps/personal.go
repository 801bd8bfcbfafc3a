package steps

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PersonalDetails is the payload of the personal details step.
type PersonalDetails struct {
	FirstName     string `json:"firstName" yaml:"firstName" validate:"required"`
	LastName      string `json:"lastName" yaml:"lastName" validate:"required"`
	DOB           string `json:"dob" yaml:"dob" validate:"required,datetime=2006-01-02,adult"`
	Phone         string `json:"phone" yaml:"phone" validate:"required,numeric,len=10"`
	PersonalEmail string `json:"personalEmail,omitempty" yaml:"personalEmail" validate:"omitempty,email"`
	Aadhaar       string `json:"aadhaar" yaml:"aadhaar" validate:"required,numeric,len=12"`
	PAN           string `json:"pan" yaml:"pan" validate:"required,pan"`
	AccountNumber string `json:"accountNumber" yaml:"accountNumber" validate:"required,numeric,len=12"`
	Address       string `json:"address,omitempty" yaml:"address" validate:"omitempty,max=250"`
}

var personalFields = []string{
	"firstName", "lastName", "dob", "phone", "personalEmail",
	"aadhaar", "pan", "accountNumber", "address",
}

// Personal is the personal details step. Its fields are checked against a
// declarative schema before submission is attempted.
type Personal struct {
	base
	validate *validator.Validate

	dataMu sync.Mutex
	data   PersonalDetails
}

// NewPersonal creates the personal details step.
func NewPersonal(index, threshold int, title, endpoint string, deps Deps) *Personal {
	return &Personal{
		base: base{
			kind: KindPersonal, title: title, endpoint: endpoint,
			index: index, threshold: threshold, deps: deps,
		},
		validate: newValidator(deps.now),
	}
}

// Set replaces the form data and marks the step dirty.
func (p *Personal) Set(d PersonalDetails) {
	d.PAN = strings.ToUpper(strings.TrimSpace(d.PAN))
	p.dataMu.Lock()
	p.data = d
	p.dataMu.Unlock()
	p.markDirty()
}

// Data returns the current form data.
func (p *Personal) Data() PersonalDetails {
	p.dataMu.Lock()
	defer p.dataMu.Unlock()
	return p.data
}

// Fields returns the form's field names in display order.
func (p *Personal) Fields() []string { return personalFields }

// Submit validates the form and writes it.
func (p *Personal) Submit(ctx context.Context) (bool, error) {
	d := p.Data()
	return p.submit(ctx,
		func() map[string]string { return fieldErrors(p.validate.Struct(d)) },
		func(context.Context) (any, error) { return d, nil },
	)
}

// Save writes the current form data as a draft.
func (p *Personal) Save(ctx context.Context) error {
	return p.save(ctx, p.Data())
}
