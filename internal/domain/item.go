package domain

import (
	"strconv"
	"strings"
	"time"
)

// SourceKind classifies where a candidate item was discovered.
type SourceKind string

const (
	KindFeed    SourceKind = "feed"
	KindRelease SourceKind = "release"
	KindOther   SourceKind = "other"
)

// CandidateItem is a raw piece of content discovered from a source.
// Link is the canonical URL and serves as the item's identity everywhere
// downstream. RelevanceScore is zero until the relevance filter sets it.
type CandidateItem struct {
	Link           string
	Title          string
	PublishedAt    time.Time
	Summary        string
	Tags           []string
	SourceKind     SourceKind
	RelevanceScore float64
}

// Fingerprint is the semantic representation of the target project used to
// score candidate relevance. Built once per run and treated as read-only.
type Fingerprint struct {
	Narrative    string
	Dependencies []string
	Embedding    []float32
}

// Analysis is the structured judgment returned by the analysis capability.
type Analysis struct {
	IsRelevant       bool        `json:"is_relevant"`
	CriticalityScore Criticality `json:"criticality_score"`
	Justification    string      `json:"justification"`
	Summary          string      `json:"summary"`
}

// Criticality is a nullable integer score. Analyzer output is loosely typed;
// numbers and numeric strings parse, anything else counts as absent and is
// persisted as NULL.
type Criticality struct {
	Value int
	Valid bool
}

func NewCriticality(v int) Criticality {
	return Criticality{Value: v, Valid: true}
}

func (c *Criticality) UnmarshalJSON(data []byte) error {
	c.Value, c.Valid = 0, false

	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		c.Value = int(f)
		c.Valid = true
	}
	return nil
}

func (c Criticality) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.Value)), nil
}

// String renders the score for reports; absent scores show as "N/A".
func (c Criticality) String() string {
	if !c.Valid {
		return "N/A"
	}
	return strconv.Itoa(c.Value)
}

// AnalysisRecord is an accepted deep-analysis result for a single item.
type AnalysisRecord struct {
	Link     string
	Title    string
	Analysis Analysis
}
