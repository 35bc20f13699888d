package domain

// VisionResult is the output of the vision capability for one page or image.
type VisionResult struct {
	// Text is the full transcription of the page.
	Text string

	// Analysis holds the structural hints reported alongside the text.
	Analysis PageAnalysis
}

// IsEmpty returns true if the result carries no usable text.
func (r *VisionResult) IsEmpty() bool {
	if r == nil {
		return true
	}
	if hasText(r.Text) {
		return false
	}
	for _, s := range r.Analysis.Sections {
		if hasText(s.Content) {
			return false
		}
	}
	for _, t := range r.Analysis.Tables {
		if hasText(t.Content) {
			return false
		}
	}
	return true
}

// PageAnalysis describes the layout and medical content of a page.
type PageAnalysis struct {
	PageType       string         `json:"page_type"`
	Sections       []PageSection  `json:"main_sections"`
	Tables         []PageTable    `json:"tables"`
	KeyMedicalInfo KeyMedicalInfo `json:"key_medical_info"`
}

// PageSection is a logical section identified on a page.
type PageSection struct {
	Title           string     `json:"title"`
	Type            string     `json:"type"`
	Content         string     `json:"content"`
	MedicalEntities []string   `json:"medical_entities"`
	Confidence      float64    `json:"confidence"`
	BBox            [4]float64 `json:"bbox_percent"`
}

// PageTable is a table identified on a page.
type PageTable struct {
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Columns      []string `json:"columns"`
	Content      string   `json:"content"`
	MedicalFocus string   `json:"medical_focus"`
}

// KeyMedicalInfo aggregates the clinically relevant facts of a page.
type KeyMedicalInfo struct {
	Medications      []string `json:"medications"`
	Dosages          []string `json:"dosages"`
	ClinicalCriteria []string `json:"clinical_criteria"`
	PatientTypes     []string `json:"patient_types"`
}

func hasText(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}
