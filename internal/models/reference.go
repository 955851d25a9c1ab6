package models

type Modality struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

var modalityNames = map[string]string{
	"CR": "Computed Radiography",
	"DR": "Digital Radiography",
	"CT": "Computed Tomography",
	"PT": "Positron Emission Tomography",
	"MR": "Magnetic Resonance",
	"US": "Ultrasound",
	"XA": "X-Ray Angiography",
	"NM": "Nuclear Medicine",
	"OT": "Other",
	"SR": "Structured Report",
	"MG": "Mammography",
	"DX": "Digital Radiography",
}

// ModalityButtons lists the query bar toggles in display order.
func ModalityButtons(order []string, f FetchFilters) []Modality {
	out := make([]Modality, 0, len(order))
	for _, code := range order {
		name, ok := modalityNames[code]
		if !ok {
			name = code
		}
		out = append(out, Modality{Code: code, Name: name, Selected: f.Modalities[code]})
	}
	return out
}
