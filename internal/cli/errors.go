package cli

import "fmt"

// ExitError represents a command execution failure with a specific exit code.
//
// Commands print their own user-facing message and then return an ExitError
// so the code propagates to [RunWithConfig] without calling os.Exit directly.
// Tests assert on the code without terminating the process.
type ExitError struct {
	// Code is the exit code to return to the shell.
	// Convention: 0 = success, 1 = general error, 2 = not logged in.
	Code int
}

// Error implements the error interface in the "exit status N" format used by
// os/exec.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError creates an [ExitError] with the given exit code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError checks if an error is an [ExitError] and extracts its exit code.
//
// Returns (code, true) if err is an *ExitError and (0, false) otherwise.
func IsExitError(err error) (int, bool) {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code, true
	}
	return 0, false
}

// Exit codes.
const (
	exitFailure   = 1
	exitNoSession = 2
)
