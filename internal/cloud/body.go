package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
)

// BodyKind classifies a buffered response body.
type BodyKind int

const (
	BodyBinary BodyKind = iota
	BodyJSON
	BodyText
)

// String implements fmt.Stringer.
func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	default:
		return "binary"
	}
}

// Response is a fully buffered API response.
type Response struct {
	Status      int
	ContentType string
	Kind        BodyKind
	Body        []byte

	// Cached is true when the body came from the Transport Cache.
	Cached bool
}

func newResponse(status int, contentType string, body []byte) *Response {
	return &Response{
		Status:      status,
		ContentType: contentType,
		Kind:        classifyBody(contentType, body),
		Body:        body,
	}
}

func classifyBody(contentType string, body []byte) BodyKind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return BodyJSON
	case strings.HasPrefix(mediaType, "text/"):
		return BodyText
	case mediaType == "" && json.Valid(bytes.TrimSpace(body)) && len(bytes.TrimSpace(body)) > 0:
		return BodyJSON
	default:
		return BodyBinary
	}
}

// Decode unmarshals a JSON body into v.
func (r *Response) Decode(v any) error {
	if r.Kind != BodyJSON {
		return fmt.Errorf("%w: content type %q", ErrNotJSON, r.ContentType)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}
