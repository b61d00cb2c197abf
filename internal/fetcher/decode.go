package fetcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
)

// acceptEncoding is sent with every request. Setting it by hand disables
// the transparent gzip handling of net/http, so decompress must cover
// every value listed here.
const acceptEncoding = "gzip, deflate, br, zstd"

// decompress wraps body according to the Content-Encoding header.
// Unknown encodings are passed through unchanged. An empty body is an
// empty page whatever its declared encoding.
func decompress(body io.Reader, contentEncoding string) (io.ReadCloser, error) {
	br := bufio.NewReader(body)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return io.NopCloser(br), nil
	}

	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		return newDeflateReader(br)
	case "br":
		return io.NopCloser(brotli.NewReader(br)), nil
	case "zstd":
		d, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return d.IOReadCloser(), nil
	default:
		return io.NopCloser(br), nil
	}
}

// newDeflateReader decodes HTTP "deflate", which is a zlib stream. Some
// servers send a raw deflate stream instead, so the zlib header is
// checked first.
func newDeflateReader(br *bufio.Reader) (io.ReadCloser, error) {
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header) {
		r, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib reader: %w", err)
		}
		return r, nil
	}
	return flate.NewReader(br), nil
}

// isZlibHeader reports whether b starts with a zlib header (RFC 1950):
// compression method 8 and a header checksum divisible by 31.
func isZlibHeader(b []byte) bool {
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// readBody decompresses body, reads at most limit bytes of the result and
// converts it to UTF-8.
func readBody(body io.Reader, contentEncoding, contentType string, limit int64) (string, error) {
	decoded, err := decompress(body, contentEncoding)
	if err != nil {
		return "", err
	}
	defer decoded.Close()

	utf8Reader, err := charset.NewReader(io.LimitReader(decoded, limit), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to detect charset: %w", err)
	}

	data, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
