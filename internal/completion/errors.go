package completion

// ValidationError rejects a request before any provider call is made. The
// message is the exact text returned in the HTTP error body.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// ErrMissingInput rejects completion requests carrying neither a prompt nor
// a messages array.
var ErrMissingInput = &ValidationError{msg: "Either prompt or messages is required"}

// ErrMissingJobDescription rejects analyze requests without a job description.
var ErrMissingJobDescription = &ValidationError{msg: "jobDescription is required"}

// ParseError reports a model response that could not be decoded into the
// structured shape the caller required. The provider answered; the answer
// was unusable. Kept distinct from provider failures so callers can tell a
// bad upstream from a bad response.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "failed to parse model response: " + e.Reason
}
