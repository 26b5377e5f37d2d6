package gemini

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const defaultImageMIME = "image/png"

var dataURIPattern = regexp.MustCompile(`^data:([\w.+-]+/[\w.+-]+)?(;[^,]*)?;base64,`)

// StripDataURIPrefix splits "data:<mime>;base64,<payload>" into mime and
// payload. Input without the prefix is returned as the payload with an empty mime.
func StripDataURIPrefix(s string) (mime, payload string) {
	s = strings.TrimSpace(s)
	loc := dataURIPattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return "", s
	}
	if loc[2] >= 0 {
		mime = s[loc[2]:loc[3]]
	}
	return mime, s[loc[1]:]
}

// DecodeImage strips any data-URI prefix and base64-decodes the payload.
// When the prefix carries no mime type it is sniffed from the bytes.
func DecodeImage(s string) ([]byte, string, error) {
	mime, payload := StripDataURIPrefix(s)
	if payload == "" {
		return nil, "", fmt.Errorf("image payload is empty")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("image payload is not valid base64: %w", err)
		}
	}

	if mime == "" {
		mime = http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			mime = defaultImageMIME
		}
	}

	return data, mime, nil
}

// EncodeDataURI renders bytes as a displayable data URI.
func EncodeDataURI(mime string, data []byte) string {
	if mime == "" {
		mime = defaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
