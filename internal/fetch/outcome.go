package fetch

import (
	"github.com/go-resty/resty/v2"
)

type Status int

const (
	// StatusOk means an HTTP response was obtained. Its status code may
	// still be an error code.
	StatusOk Status = iota
	// StatusRetriesExhausted means every attempt failed with a
	// transient network error.
	StatusRetriesExhausted
	// StatusFatal means the request failed in a way retrying cannot
	// fix, so no further attempts were made.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusRetriesExhausted:
		return "retries exhausted"
	case StatusFatal:
		return "fatal"
	}
	return "unknown"
}

// Outcome is the terminal state of one logical request, retries included.
type Outcome struct {
	status Status
	resp   *resty.Response
	reason string
}

func Ok(resp *resty.Response) Outcome {
	return Outcome{status: StatusOk, resp: resp}
}

func RetriesExhausted(reason string) Outcome {
	return Outcome{status: StatusRetriesExhausted, reason: reason}
}

func Fatal(reason string) Outcome {
	return Outcome{status: StatusFatal, reason: reason}
}

func (o Outcome) Status() Status {
	return o.status
}

// OK reports whether a response was obtained at all.
func (o Outcome) OK() bool {
	return o.status == StatusOk
}

// Response is only non-nil when OK returns true.
func (o Outcome) Response() *resty.Response {
	return o.resp
}

// Reason describes the final network error for non-Ok outcomes.
func (o Outcome) Reason() string {
	return o.reason
}
