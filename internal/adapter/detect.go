package adapter

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	apperrors "tradeaudit/internal/errors"
)

// utf8BOM is the byte order mark some exports (Kotak) prepend.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Detect matches a file's header row against every registered adapter's
// fingerprint and returns the first match. path is used only for the
// error message.
func Detect(path string, headers []string) (Adapter, error) {
	lower := make(map[string]bool, len(headers))
	for _, h := range headers {
		lower[strings.ToLower(strings.TrimSpace(h))] = true
	}

	for _, a := range Registered() {
		matched := true
		for _, want := range a.Fingerprint() {
			if !lower[want] {
				matched = false
				break
			}
		}
		if matched {
			return a, nil
		}
	}
	return nil, apperrors.NewDetectError(path, headers)
}

// SniffFile reads a file's header row and first data row (when present).
func SniffFile(path string) (headers, sample []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Sniff(f, path)
}

// Sniff reads the header row and first data row from a CSV stream,
// tolerating a UTF-8 BOM. A stream with no header row cannot be
// identified and yields ErrUnknownFormat.
func Sniff(r io.Reader, path string) (headers, sample []string, err error) {
	br := bufio.NewReader(r)
	stripBOM(br)

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	headers, err = cr.Read()
	if err == io.EOF {
		return nil, nil, apperrors.NewDetectError(path, nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewParseError("", path, 1, err)
	}

	sample, err = cr.Read()
	if err == io.EOF {
		return headers, nil, nil
	}
	if err != nil {
		// Header identified the file; a bad first data row is the
		// parser's problem to report.
		return headers, nil, nil
	}
	return headers, sample, nil
}

// stripBOM consumes a leading UTF-8 BOM if present.
func stripBOM(br *bufio.Reader) {
	peek, err := br.Peek(3)
	if err != nil {
		return
	}
	if peek[0] == utf8BOM[0] && peek[1] == utf8BOM[1] && peek[2] == utf8BOM[2] {
		br.Discard(3)
	}
}
