// Package adapter parses heterogeneous broker export files into the
// canonical fill schema. Each broker format has an adapter with a header
// fingerprint; detection matches fingerprints against a file's header row.
package adapter

import (
	"io"
	"os"
	"strings"

	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
)

// Adapter parses one broker's export format.
type Adapter interface {
	// Broker identifies the adapter.
	Broker() models.Broker
	// Variants lists the export flavors this adapter understands.
	Variants() []string
	// Fingerprint returns the lowercase header names that identify the
	// format. All of them must be present for a match.
	Fingerprint() []string
	// Required returns the exact header names parsing depends on. A
	// fingerprint match without them is a schema mismatch.
	Required() []string
	// Parse reads the full export and returns fills in file order.
	// Fill.Seq is left unset; callers assign it across files.
	Parse(r io.Reader, src string) ([]models.Fill, error)
}

// Registered returns all adapters in stable detection order.
func Registered() []Adapter {
	return []Adapter{
		&zerodhaAdapter{},
		&kotakAdapter{},
		&iciciAdapter{},
	}
}

// ForBroker returns the adapter for an explicitly named broker.
func ForBroker(name string) (Adapter, error) {
	for _, a := range Registered() {
		if string(a.Broker()) == strings.ToLower(strings.TrimSpace(name)) {
			return a, nil
		}
	}
	return nil, apperrors.Wrapf(apperrors.ErrUnknownFormat, "broker %q", name)
}

// ParseFile identifies and parses one export file. Broker "" or "auto"
// detects the format from the header row; anything else selects the
// adapter directly. The required-column check runs in both cases.
func ParseFile(path, broker string) ([]models.Fill, models.Broker, error) {
	headers, _, err := SniffFile(path)
	if err != nil {
		return nil, "", err
	}

	var a Adapter
	if broker == "" || broker == "auto" {
		a, err = Detect(path, headers)
	} else {
		a, err = ForBroker(broker)
	}
	if err != nil {
		return nil, "", err
	}

	if missing := missingRequired(a, headers); len(missing) > 0 {
		return nil, a.Broker(), apperrors.NewParseError(
			string(a.Broker()), path, 0,
			apperrors.Wrapf(apperrors.ErrSchemaMismatch, "missing columns [%s]", strings.Join(missing, ", ")))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, a.Broker(), err
	}
	defer f.Close()

	fills, err := a.Parse(f, path)
	if err != nil {
		return nil, a.Broker(), err
	}
	return fills, a.Broker(), nil
}

// missingRequired returns the required headers absent from the file.
// The comparison is exact after trimming, matching how the exports are
// actually produced.
func missingRequired(a Adapter, headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, req := range a.Required() {
		if !present[req] {
			missing = append(missing, req)
		}
	}
	return missing
}
