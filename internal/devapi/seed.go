package devapi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is the initial content of the in-memory API.
type Seed struct {
	Users    []SeedUser   `yaml:"users"`
	Policies []SeedPolicy `yaml:"policies"`
}

// SeedUser is one account in the seed file.
type SeedUser struct {
	Name        string   `yaml:"name"`
	Email       string   `yaml:"email"`
	Password    string   `yaml:"password"`
	Role        string   `yaml:"role"`
	JoineeType  string   `yaml:"joinee_type"`
	EditRights  bool     `yaml:"edit_rights"`
	Department  string   `yaml:"department"`
	Designation string   `yaml:"designation"`
	Phone       string   `yaml:"phone"`
	DOB         string   `yaml:"dob"`
	JoiningDate string   `yaml:"joining_date"`
	FormsFilled []bool   `yaml:"forms_filled"`
	Permissions []string `yaml:"permissions"`
	Inactive    bool     `yaml:"inactive"`
}

// SeedPolicy is one policy document in the seed file.
type SeedPolicy struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// DefaultSeed returns a small organisation: one admin, one new joinee, one
// existing employee and one experienced hire.
func DefaultSeed() Seed {
	return Seed{
		Users: []SeedUser{
			{
				Name: "Meera Admin", Email: "admin@example.com", Password: "admin1234",
				Role: "ADMIN", JoineeType: "EXISTING", Department: "People Ops",
				DOB: "1985-06-01", JoiningDate: "2015-03-10",
			},
			{
				Name: "Asha Rao", Email: "asha@example.com", Password: "welcome123",
				Role: "EMPLOYEE", JoineeType: "NEW", EditRights: true, Department: "Engineering",
				DOB: "1998-11-20", JoiningDate: "2026-10-01",
				Permissions: []string{"directory:view"},
			},
			{
				Name: "Ravi Kumar", Email: "ravi@example.com", Password: "welcome123",
				Role: "EMPLOYEE", JoineeType: "EXISTING", EditRights: true, Department: "Finance",
				DOB: "1990-02-14", JoiningDate: "2019-07-22",
				Permissions: []string{"directory:view"},
			},
			{
				Name: "Kiran Shah", Email: "kiran@example.com", Password: "welcome123",
				Role: "EMPLOYEE", JoineeType: "EXPERIENCED", EditRights: true, Department: "Sales",
				DOB: "1988-09-03", JoiningDate: "2026-09-15",
				Permissions: []string{"directory:view"},
			},
		},
		Policies: []SeedPolicy{
			{Title: "Leave Policy", URL: "https://docs.example.com/policies/leave.pdf"},
			{Title: "Code of Conduct", URL: "https://docs.example.com/policies/conduct.pdf"},
		},
	}
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed: %w", err)
	}

	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	return s, nil
}
