// Package manifest reads onboarding step manifest files.
//
// The step manifest catalogs the wizard steps in order with the screen route
// each one opens and the endpoint its submission is written to. This lets a
// deployment point the steps at a different API layout without code changes.
//
// CSV format:
//
//	step,title,route,endpoint
//	personal,Personal Details,form1,/employees/me/personal-details
//	documents,Documents,form2,/employees/me/documents
//	bank,Bank Details,form3,/employees/me/bank-details
//	agreement,Agreement,form4,/employees/me/agreement
//
// Rows are ordered by wizard sequence. Each step name may appear once.
package manifest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultCSV is the built-in manifest describing the standard four steps.
const DefaultCSV = `step,title,route,endpoint
personal,Personal Details,form1,/employees/me/personal-details
documents,Documents,form2,/employees/me/documents
bank,Bank Details,form3,/employees/me/bank-details
agreement,Agreement,form4,/employees/me/agreement
`

// StepEntry represents a single row in the step manifest CSV.
type StepEntry struct {
	// Step is the step kind (personal, documents, bank, agreement).
	Step string

	// Title is the human-readable step title.
	Title string

	// Route is the screen route for this step (e.g., "form1").
	Route string

	// Endpoint is the API path the step's payload is PATCHed to.
	Endpoint string
}

// Manifest holds all step entries parsed from a manifest CSV file.
type Manifest struct {
	// Entries are the step entries in wizard order.
	Entries []StepEntry
}

// Default returns the built-in manifest.
func Default() *Manifest {
	m, err := ReadFromString(DefaultCSV)
	if err != nil {
		panic(err)
	}
	return m
}

// ReadFromFile reads and parses a step manifest CSV file.
func ReadFromFile(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	return readFromReader(f)
}

// ReadFromString parses a step manifest from a CSV string.
func ReadFromString(data string) (*Manifest, error) {
	return readFromReader(strings.NewReader(data))
}

func readFromReader(r io.Reader) (*Manifest, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest header: %w", err)
	}

	colIndex := buildColumnIndex(header)
	if err := validateColumns(colIndex); err != nil {
		return nil, err
	}

	var entries []StepEntry
	seen := make(map[string]bool)
	lineNum := 1 // header was line 1
	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest line %d: %w", lineNum, err)
		}

		entry := StepEntry{
			Step:     getField(record, colIndex, "step"),
			Title:    getField(record, colIndex, "title"),
			Route:    getField(record, colIndex, "route"),
			Endpoint: getField(record, colIndex, "endpoint"),
		}

		if entry.Step == "" {
			return nil, fmt.Errorf("manifest line %d: step name is required", lineNum)
		}
		if entry.Endpoint == "" {
			return nil, fmt.Errorf("manifest line %d: endpoint is required", lineNum)
		}
		if seen[entry.Step] {
			return nil, fmt.Errorf("manifest line %d: duplicate step %q", lineNum, entry.Step)
		}
		seen[entry.Step] = true

		if entry.Title == "" {
			entry.Title = entry.Step
		}

		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("manifest contains no step entries")
	}

	return &Manifest{Entries: entries}, nil
}

// requiredColumns are the columns that must be present in the manifest CSV.
var requiredColumns = []string{"step", "endpoint"}

func buildColumnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	return index
}

func validateColumns(colIndex map[string]int) error {
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return fmt.Errorf("manifest missing required column: %s", col)
		}
	}
	return nil
}

func getField(record []string, colIndex map[string]int, column string) string {
	idx, ok := colIndex[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// Steps returns the step names in wizard order.
func (m *Manifest) Steps() []string {
	steps := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		steps[i] = e.Step
	}
	return steps
}

// GetStepEntry returns the entry for the given step name, or nil if absent.
func (m *Manifest) GetStepEntry(name string) *StepEntry {
	for i := range m.Entries {
		if m.Entries[i].Step == name {
			return &m.Entries[i]
		}
	}
	return nil
}

// HasStep returns true if the manifest contains the given step.
func (m *Manifest) HasStep(name string) bool {
	return m.GetStepEntry(name) != nil
}
