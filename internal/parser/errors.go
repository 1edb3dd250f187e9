package parser

import "fmt"

// SignatureCompileError reports a signature that cannot be compiled.
// A database that produced one must not be used.
type SignatureCompileError struct {
	Technology string
	Field      string
	Pattern    string
	Cause      error
}

func (e *SignatureCompileError) Error() string {
	if e.Technology == "" {
		return fmt.Sprintf("signature compile error: %s: %v", e.Field, e.Cause)
	}
	if e.Pattern != "" {
		return fmt.Sprintf("signature compile error: %s: %s %q: %v", e.Technology, e.Field, e.Pattern, e.Cause)
	}
	return fmt.Sprintf("signature compile error: %s: %s: %v", e.Technology, e.Field, e.Cause)
}

func (e *SignatureCompileError) Unwrap() error {
	return e.Cause
}
