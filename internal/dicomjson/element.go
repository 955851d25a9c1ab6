// Package dicomjson implements the DICOM JSON model (PS3.18 Annex F) used by
// QIDO-RS responses and STOW-RS JSON submissions.
package dicomjson

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value representations used by the worklist and report code.
const (
	VR_AE = "AE" // Application Entity
	VR_CS = "CS" // Code String
	VR_DA = "DA" // Date
	VR_DS = "DS" // Decimal String
	VR_DT = "DT" // Date Time
	VR_IS = "IS" // Integer String
	VR_LO = "LO" // Long String
	VR_PN = "PN" // Person Name
	VR_SH = "SH" // Short String
	VR_SQ = "SQ" // Sequence of Items
	VR_TM = "TM" // Time
	VR_UI = "UI" // Unique Identifier
	VR_UT = "UT" // Unlimited Text
)

// numericVRs are encoded as JSON numbers rather than strings.
var numericVRs = map[string]bool{
	"DS": true, "IS": true, "FL": true, "FD": true,
	"SL": true, "SS": true, "SV": true, "UL": true, "US": true, "UV": true,
}

// PersonName is the JSON object form of a PN value.
type PersonName struct {
	Alphabetic  string `json:"Alphabetic,omitempty"`
	Ideographic string `json:"Ideographic,omitempty"`
	Phonetic    string `json:"Phonetic,omitempty"`
}

// Element is one attribute of a dataset. Value holds string, json.Number,
// PersonName or Dataset entries depending on VR. An element with no values is
// a present-but-empty attribute.
type Element struct {
	VR           string
	Value        []any
	InlineBinary string
	BulkDataURI  string
}

type wireElement struct {
	VR           string            `json:"vr"`
	Value        []json.RawMessage `json:"Value,omitempty"`
	InlineBinary string            `json:"InlineBinary,omitempty"`
	BulkDataURI  string            `json:"BulkDataURI,omitempty"`
}

// UnmarshalJSON decodes the Value array according to the element's VR.
func (e *Element) UnmarshalJSON(data []byte) error {
	var w wireElement
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.VR == "" {
		return fmt.Errorf("dicomjson: element without vr")
	}
	e.VR = w.VR
	e.InlineBinary = w.InlineBinary
	e.BulkDataURI = w.BulkDataURI
	e.Value = nil
	for i, raw := range w.Value {
		v, err := decodeValue(w.VR, raw)
		if err != nil {
			return fmt.Errorf("dicomjson: %s value %d: %w", w.VR, i, err)
		}
		e.Value = append(e.Value, v)
	}
	return nil
}

func decodeValue(vr string, raw json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}
	switch {
	case vr == VR_SQ:
		var item Dataset
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, err
		}
		return item, nil
	case vr == VR_PN:
		var pn PersonName
		if err := json.Unmarshal(raw, &pn); err != nil {
			return nil, err
		}
		return pn, nil
	case numericVRs[vr]:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case json.Number:
			return n, nil
		case string:
			// Some archives send IS/DS as strings.
			return json.Number(n), nil
		default:
			return nil, fmt.Errorf("unexpected numeric value %s", raw)
		}
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// MarshalJSON encodes the element, omitting Value when the element is empty.
func (e Element) MarshalJSON() ([]byte, error) {
	type out struct {
		VR           string `json:"vr"`
		Value        []any  `json:"Value,omitempty"`
		InlineBinary string `json:"InlineBinary,omitempty"`
		BulkDataURI  string `json:"BulkDataURI,omitempty"`
	}
	return json.Marshal(out{VR: e.VR, Value: e.Value, InlineBinary: e.InlineBinary, BulkDataURI: e.BulkDataURI})
}

// IsEmpty reports whether the element carries no value.
func (e *Element) IsEmpty() bool {
	return len(e.Value) == 0 && e.InlineBinary == "" && e.BulkDataURI == ""
}

// Strings returns the element's values rendered as strings. Person names
// yield their alphabetic group; sequence items are skipped.
func (e *Element) Strings() []string {
	out := make([]string, 0, len(e.Value))
	for _, v := range e.Value {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case json.Number:
			out = append(out, x.String())
		case PersonName:
			out = append(out, x.Alphabetic)
		}
	}
	return out
}
