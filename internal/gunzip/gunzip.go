package gunzip

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// IsGzip reports whether a content-encoding value indicates gzip.
func IsGzip(contentEncoding string) bool {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return true
	default:
		return false
	}
}

// Decode decompresses body when contentEncoding indicates gzip, returning
// the plaintext and whether decompression happened. Bodies with any other
// encoding pass through untouched.
func Decode(contentEncoding string, body []byte) ([]byte, bool, error) {
	if !IsGzip(contentEncoding) {
		return body, false, nil
	}
	reader, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	defer reader.Close()

	plain, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, err
	}
	return plain, true, nil
}
