package dicomjson

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// Dataset maps an 8 hex digit tag key (e.g. "0020000D") to its element.
type Dataset map[string]*Element

// Key renders a tag as a DICOM JSON object key.
func Key(t tag.Tag) string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (tag.Tag, error) {
	if len(key) != 8 {
		return tag.Tag{}, fmt.Errorf("dicomjson: bad tag key %q", key)
	}
	g, err := strconv.ParseUint(key[:4], 16, 16)
	if err != nil {
		return tag.Tag{}, fmt.Errorf("dicomjson: bad tag key %q: %w", key, err)
	}
	e, err := strconv.ParseUint(key[4:], 16, 16)
	if err != nil {
		return tag.Tag{}, fmt.Errorf("dicomjson: bad tag key %q: %w", key, err)
	}
	return tag.Tag{Group: uint16(g), Element: uint16(e)}, nil
}

// Keyword returns the dictionary keyword for t, or its key if unknown.
func Keyword(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil && info.Name != "" {
		return info.Name
	}
	return Key(t)
}

// UnmarshalJSON validates every key while decoding.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raw map[string]*Element
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Dataset, len(raw))
	for k, el := range raw {
		if _, err := ParseKey(k); err != nil {
			return err
		}
		if el == nil {
			return fmt.Errorf("dicomjson: null element for %s", k)
		}
		out[strings.ToUpper(k)] = el
	}
	*d = out
	return nil
}

// Get returns the element for t.
func (d Dataset) Get(t tag.Tag) (*Element, bool) {
	el, ok := d[Key(t)]
	return el, ok
}

// Has reports whether t is present, empty or not.
func (d Dataset) Has(t tag.Tag) bool {
	_, ok := d[Key(t)]
	return ok
}

// String returns the first value of t. The boolean is false when the
// attribute is absent; a present but empty attribute yields ("", true).
func (d Dataset) String(t tag.Tag) (string, bool) {
	el, ok := d.Get(t)
	if !ok {
		return "", false
	}
	vals := el.Strings()
	if len(vals) == 0 {
		return "", true
	}
	return vals[0], true
}

// Strings returns all values of t, nil when absent.
func (d Dataset) Strings(t tag.Tag) []string {
	el, ok := d.Get(t)
	if !ok {
		return nil
	}
	return el.Strings()
}

// Items returns the items of a sequence attribute.
func (d Dataset) Items(t tag.Tag) []Dataset {
	el, ok := d.Get(t)
	if !ok {
		return nil
	}
	var items []Dataset
	for _, v := range el.Value {
		if item, ok := v.(Dataset); ok {
			items = append(items, item)
		}
	}
	return items
}

// Put sets t to the given string values. PN values are wrapped in their
// Alphabetic group and numeric VRs are written as JSON numbers.
func (d Dataset) Put(t tag.Tag, vr string, values ...string) {
	el := &Element{VR: vr}
	for _, v := range values {
		switch {
		case vr == VR_PN:
			el.Value = append(el.Value, PersonName{Alphabetic: v})
		case numericVRs[vr]:
			el.Value = append(el.Value, json.Number(v))
		default:
			el.Value = append(el.Value, v)
		}
	}
	d[Key(t)] = el
}

// PutEmpty sets t to a present, zero-length element of the given VR.
func (d Dataset) PutEmpty(t tag.Tag, vr string) {
	d[Key(t)] = &Element{VR: vr}
}

// PutSequence sets t to a sequence of the given items.
func (d Dataset) PutSequence(t tag.Tag, items ...Dataset) {
	el := &Element{VR: VR_SQ}
	for _, item := range items {
		el.Value = append(el.Value, item)
	}
	d[Key(t)] = el
}

// PutElement stores a copy of el under t.
func (d Dataset) PutElement(t tag.Tag, el *Element) {
	cp := *el
	cp.Value = append([]any(nil), el.Value...)
	d[Key(t)] = &cp
}
