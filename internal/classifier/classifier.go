package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// NoAnimalDetected is the in-band classification value the external service
// uses when the image contains no recognisable animal.
const NoAnimalDetected = "No animal detected"

var (
	ErrUnreachable       = errors.New("classification service unreachable")
	ErrTimeout           = errors.New("classification service timed out")
	ErrCanceled          = errors.New("classification request canceled")
	ErrMalformedResponse = errors.New("classification service returned malformed data")
)

// StatusError reports a non-success status from the classification service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classification service returned status %d", e.StatusCode)
}

// Request is the payload forwarded to the classification service. Image holds
// the caller's JSON value untouched; a nil Image is omitted.
type Request struct {
	Image json.RawMessage `json:"image,omitempty"`
}

// NewRequest wraps a data URI string as a Request.
func NewRequest(dataURI string) Request {
	raw, _ := json.Marshal(dataURI)
	return Request{Image: raw}
}

// ImageString returns the image member when it is a JSON string.
func (r Request) ImageString() (string, bool) {
	if len(r.Image) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(r.Image, &s); err != nil {
		return "", false
	}
	return s, true
}

// Result is the decoded form of the classification service response.
type Result struct {
	Classification string  `json:"classification"`
	AnimalInfo     *string `json:"animalInfo"`
	IsDangerous    *bool   `json:"isDangerous"`
}

// DecodeResult decodes a relayed response body.
func DecodeResult(raw json.RawMessage) (*Result, error) {
	var res *Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: null result", ErrMalformedResponse)
	}
	return res, nil
}

// Client exposes the classification call used by the proxy. The response body
// is returned verbatim.
type Client interface {
	Classify(ctx context.Context, req Request) (json.RawMessage, error)
}

// Kind names the failure class of err for logs and metrics.
func Kind(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &statusErr):
		return "upstream_status"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	default:
		return "internal"
	}
}
