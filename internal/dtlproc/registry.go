package dtlproc

import (
	"fmt"
	"path"
	"strings"
)

// ValueEncoding selects how the 4-byte value field of a packet is
// interpreted. It is fixed per file type and resolved at classification
// time, never inferred from the binary data.
type ValueEncoding int

const (
	EncodingFloat ValueEncoding = iota
	EncodingInt
)

// String returns the string representation of ValueEncoding
func (ve ValueEncoding) String() string {
	switch ve {
	case EncodingFloat:
		return "float32"
	case EncodingInt:
		return "int32"
	default:
		return fmt.Sprintf("encoding(%d)", int(ve))
	}
}

// FileTypeDefinition describes one recognized DTL dataset: the filename
// glob that identifies it, the length of the header to skip before the
// record area, the value encoding, and the human-readable label used for
// the value column on export.
type FileTypeDefinition struct {
	ID           string
	Pattern      string
	HeaderLength int64
	Encoding     ValueEncoding
	ValueLabel   string
}

// Registry is an ordered, immutable set of file type definitions.
// Classification tests patterns in declaration order and the first match
// wins; patterns are mutually exclusive by construction, so order only
// matters for determinism.
type Registry []FileTypeDefinition

// DefaultRegistry returns the registry of datasets produced by Syker
// refrigeration and waste-monitoring loggers. Header lengths are fixed
// properties of the firmware that writes each dataset. The door datasets
// record event counts and use integer encoding; everything else is a
// float measurement.
func DefaultRegistry() Registry {
	return Registry{
		{ID: "co2days", Pattern: "*DataLogCO2Days.dtl", HeaderLength: 39, Encoding: EncodingFloat, ValueLabel: "CO2 Emissions Prevented (kg)"},
		{ID: "co2months", Pattern: "*DataLogCO2Months.dtl", HeaderLength: 44, Encoding: EncodingFloat, ValueLabel: "CO2 Emissions Prevented (kg)"},
		{ID: "co2year", Pattern: "*DataLogCO2Year.dtl", HeaderLength: 43, Encoding: EncodingFloat, ValueLabel: "CO2 Emissions Prevented (kg)"},
		{ID: "doorclose", Pattern: "*DataLogDoorClose.dtl", HeaderLength: 46, Encoding: EncodingInt, ValueLabel: "Instances of Door Closures"},
		{ID: "doordays", Pattern: "*DataLogDoorDays.dtl", HeaderLength: 39, Encoding: EncodingInt, ValueLabel: "Instances of Door Actions"},
		{ID: "doormonth", Pattern: "*DataLogDoorMonth.dtl", HeaderLength: 44, Encoding: EncodingInt, ValueLabel: "Door Openings per Day"},
		{ID: "dooropen", Pattern: "*DataLogDoorOpen.dtl", HeaderLength: 46, Encoding: EncodingInt, ValueLabel: "Instances of Door Openings"},
		{ID: "dooryear", Pattern: "*DataLogDoorYear.dtl", HeaderLength: 43, Encoding: EncodingInt, ValueLabel: "Door Openings per Day"},
		{ID: "wastedays", Pattern: "*DataLogWasteDays.dtl", HeaderLength: 39, Encoding: EncodingFloat, ValueLabel: "Cummulative Waste per Day (kg)"},
		{ID: "wastemont", Pattern: "*DataLogWasteMont.dtl", HeaderLength: 44, Encoding: EncodingFloat, ValueLabel: "Total Waste per Day (kg)"},
		{ID: "wasteyear", Pattern: "*DataLogWasteYear.dtl", HeaderLength: 43, Encoding: EncodingFloat, ValueLabel: "Total Waste per day (kg)"},
		{ID: "weightdiff", Pattern: "*DataLogWeighDiff.dtl", HeaderLength: 46, Encoding: EncodingFloat, ValueLabel: "Weight Difference across door open and close (kg)"},
		{ID: "trendtemp", Pattern: "*TrendTemperature.dtl", HeaderLength: 46, Encoding: EncodingFloat, ValueLabel: "Recorded Temperature (°C)"},
		{ID: "weightday", Pattern: "*WeightDay.dtl", HeaderLength: 46, Encoding: EncodingFloat, ValueLabel: "Recorded Weight (kg)"},
	}
}

// Match classifies a bare filename (no directory component) against the
// registry. The second return value is false when no pattern matches.
func (r Registry) Match(filename string) (FileTypeDefinition, bool) {
	for _, def := range r {
		if ok, _ := path.Match(def.Pattern, filename); ok {
			return def, true
		}
	}
	return FileTypeDefinition{}, false
}

// Lookup returns the definition for a file type identifier.
func (r Registry) Lookup(fileType string) (FileTypeDefinition, bool) {
	for _, def := range r {
		if def.ID == fileType {
			return def, true
		}
	}
	return FileTypeDefinition{}, false
}

// Validate checks structural sanity of the registry. A bad registry is a
// configuration bug, so this is meant to be called at startup or from
// tests, not per request.
func (r Registry) Validate() error {
	seen := make(map[string]bool, len(r))
	for _, def := range r {
		if strings.TrimSpace(def.ID) == "" {
			return fmt.Errorf("file type identifier cannot be empty")
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate file type identifier: %s", def.ID)
		}
		seen[def.ID] = true

		if def.Pattern == "" {
			return fmt.Errorf("file type %s has an empty pattern", def.ID)
		}
		if _, err := path.Match(def.Pattern, "probe.dtl"); err != nil {
			return fmt.Errorf("file type %s has a malformed pattern %q: %w", def.ID, def.Pattern, err)
		}
		if def.HeaderLength < 0 {
			return fmt.Errorf("file type %s has a negative header length", def.ID)
		}
		if strings.TrimSpace(def.ValueLabel) == "" {
			return fmt.Errorf("file type %s has an empty value label", def.ID)
		}
	}
	return nil
}
