package harness

import (
	"github.com/roach88/kspace/internal/ir"
)

// Result is the outcome of running one case.
type Result struct {
	// Pass indicates overall case success.
	// True if every then check holds.
	Pass bool `json:"pass"`

	// Value is the operation result; nil when the operation failed.
	Value ir.IRValue `json:"value,omitempty"`

	// Code is the error code of a failed operation.
	Code string `json:"code,omitempty"`

	// ErrorMessage is the error text of a failed operation.
	ErrorMessage string `json:"error_message,omitempty"`

	// Space is the space after the operation, in file layout.
	// Nil in update_conditions mode.
	Space ir.IRObject `json:"space,omitempty"`

	// Changed reports whether the operation modified the space.
	Changed bool `json:"changed,omitempty"`

	// Errors contains check failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a check failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
