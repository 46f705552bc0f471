package fileio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedDataURL is returned when a data URL cannot be decoded
var ErrMalformedDataURL = errors.New("malformed data URL")

const downloadPrefix = "data:text/plain;charset=utf-8,"

// IsDataURL reports whether data starts with the data: scheme
func IsDataURL(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte("data:"))
}

// DecodeDataURL decodes "data:[<mediatype>][;base64],<payload>" and returns
// the payload and media type.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", fmt.Errorf("%w: missing data: scheme", ErrMalformedDataURL)
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing comma", ErrMalformedDataURL)
	}

	params := strings.Split(header, ";")
	mediaType := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, mediaType, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
		}
		return data, mediaType, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, mediaType, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
	}
	return []byte(unescaped), mediaType, nil
}

// EncodeDataURL encodes content as a base64 data URL of the given media type
func EncodeDataURL(mediaType string, content []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// DownloadURL builds the plain-text data URL a browser download link uses
// for an exported file.
func DownloadURL(content []byte) string {
	return downloadPrefix + strings.ReplaceAll(url.QueryEscape(string(content)), "+", "%20")
}

// Unwrap returns the payload of data if it is a data URL, and data unchanged otherwise
func Unwrap(data []byte) ([]byte, error) {
	if !IsDataURL(data) {
		return data, nil
	}
	payload, _, err := DecodeDataURL(string(data))
	return payload, err
}
