// Package datauri encodes uploads as data URIs and inspects data URIs for
// logging. Nothing here rejects a payload on behalf of the proxy; the external
// classifier is the only component that decides whether an image is usable.
package datauri

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNotDataURI = errors.New("datauri: missing data: scheme")
	ErrMalformed  = errors.New("datauri: missing comma separator")
)

// Info describes a parsed data URI.
type Info struct {
	// Declared is the media type from the URI prefix, e.g. "image/png".
	Declared string
	// Detected is the media type sniffed from the decoded payload. Empty when
	// the payload is not base64 or does not decode.
	Detected string
	Base64   bool
	// Size is the decoded payload size in bytes, or the raw length when the
	// payload is not base64.
	Size int
}

// IsImage reports whether either media type names an image.
func (i Info) IsImage() bool {
	return strings.HasPrefix(i.Declared, "image/") || strings.HasPrefix(i.Detected, "image/")
}

// Encode renders data as a base64 data URI. When mediaType is empty it is
// detected from the content.
func Encode(mediaType string, data []byte) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = mimetype.Detect(data).String()
	}
	if semi := strings.IndexByte(mediaType, ';'); semi >= 0 {
		mediaType = mediaType[:semi]
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Parse splits a data URI of the form data:[<mediatype>][;base64],<data>.
func Parse(s string) (Info, error) {
	s = strings.TrimSpace(s)
	if len(s) < len("data:") || !strings.EqualFold(s[:len("data:")], "data:") {
		return Info{}, ErrNotDataURI
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return Info{}, ErrMalformed
	}

	meta := s[len("data:"):comma]
	payload := s[comma+1:]

	var info Info
	params := strings.Split(meta, ";")
	info.Declared = strings.ToLower(strings.TrimSpace(params[0]))
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			info.Base64 = true
		}
	}
	if info.Declared == "" {
		info.Declared = "text/plain"
	}

	if !info.Base64 {
		info.Size = len(payload)
		return info, nil
	}

	data, err := decode(payload)
	if err != nil {
		info.Size = len(payload)
		return info, nil
	}
	info.Size = len(data)
	if len(data) > 0 {
		info.Detected = mimetype.Detect(data).String()
	}
	return info, nil
}

func decode(payload string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(payload); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(payload)
}
