package api

import "encoding/json"

// LoginResult is the decoded login response.
type LoginResult struct {
	// Token is the session credential.
	Token string

	// User is the raw claims blob stored under the userData key.
	User json.RawMessage
}

// SignupRequest is the payload of the signup endpoint.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PresignResult is the decoded presign-upload response.
type PresignResult struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// Employee is a directory record.
type Employee struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department,omitempty"`
	Designation string `json:"designation,omitempty"`
	Phone       string `json:"phone,omitempty"`
	// DOB and JoiningDate use the YYYY-MM-DD layout.
	DOB         string `json:"dob,omitempty"`
	JoiningDate string `json:"joiningDate,omitempty"`
	Role        string `json:"role,omitempty"`
	JoineeType  string `json:"joineeType,omitempty"`
	EditRights  bool   `json:"editRights"`
	Active      bool   `json:"active"`
}

// EmployeePage is one page of a directory listing.
type EmployeePage struct {
	Items      []Employee `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	Total      int        `json:"total"`
}

// Policy is a policy document entry.
type Policy struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}
