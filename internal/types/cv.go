package types

import "encoding/json"

// Contact is the CV contact block, passed through from the master CV rather
// than generated.
type Contact struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Location     string `json:"location,omitempty"`
	LinkedInURL  string `json:"linkedin_url,omitempty"`
	GitHubURL    string `json:"github_url,omitempty"`
	PortfolioURL string `json:"portfolio_url,omitempty"`
}

// Experience is one work experience entry.
type Experience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date,omitempty"`
	IsCurrent    bool     `json:"is_current,omitempty"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Education is one education entry.
type Education struct {
	Institution  string   `json:"institution"`
	Degree       string   `json:"degree"`
	FieldOfStudy string   `json:"field_of_study"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	GPA          string   `json:"gpa,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// Skill is one skill entry with its grouping category.
type Skill struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Proficiency string `json:"proficiency,omitempty"`
}

// Project is one standalone project entry.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// Certification is one credential entry.
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date,omitempty"`
}

// StructuredCV is the schema-validated CV shape exchanged with the composer
// and the renderer. The same shape serves as the master CV on disk.
type StructuredCV struct {
	Contact        Contact         `json:"contact"`
	Summary        string          `json:"summary"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Projects       []Project       `json:"projects,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
}

// Clone returns a deep copy of the CV.
func (cv *StructuredCV) Clone() *StructuredCV {
	if cv == nil {
		return nil
	}
	// The CV is plain data; a marshal round-trip is the simplest faithful copy.
	raw, err := json.Marshal(cv)
	if err != nil {
		out := *cv
		return &out
	}
	var out StructuredCV
	if err := json.Unmarshal(raw, &out); err != nil {
		c := *cv
		return &c
	}
	return &out
}
