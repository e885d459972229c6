package models

import "strings"

// FilterState is the active category filter and search highlight of a map view
type FilterState struct {
	Categories         []Category `json:"categories"` // Empty or containing "all" means no filter
	HighlightZip       string     `json:"highlight_zip,omitempty"`
	HighlightClusterID *int       `json:"highlight_cluster_id,omitempty"`
}

// IsAll reports whether the category filter is the identity filter
func (f FilterState) IsAll() bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == CategoryAll {
			return true
		}
	}
	return false
}

// HasHighlight reports whether any highlight predicate is set
func (f FilterState) HasHighlight() bool {
	return f.HighlightZip != "" || f.HighlightClusterID != nil
}

// ParseCategoryList parses a comma separated category filter ("solar,battery", "all")
func ParseCategoryList(raw string) []Category {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]Category, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, ParseCategory(p))
	}
	return out
}

// MapViewFilter represents query parameters for rendering a map view
type MapViewFilter struct {
	Zoom             float64 `form:"zoom" binding:"min=0,max=24"`
	Simple           bool    `form:"simple"`
	Category         string  `form:"category"` // Comma separated, "all" for no filter
	ProjectType      string  `form:"projectType"`
	HighlightZip     string  `form:"highlightZip"`
	HighlightCluster *int    `form:"highlightCluster"`
}

// FilterState converts the query parameters into a FilterState
func (f MapViewFilter) FilterState() FilterState {
	return FilterState{
		Categories:         ParseCategoryList(f.Category),
		HighlightZip:       strings.TrimSpace(f.HighlightZip),
		HighlightClusterID: f.HighlightCluster,
	}
}

// PointListFilter represents query parameters for the raw point list
type PointListFilter struct {
	Category    string `form:"category"`
	ProjectType string `form:"projectType"`
	Limit       int    `form:"limit" binding:"min=0"`
}

// GeographyFilter represents query parameters for the geography feed
type GeographyFilter struct {
	Limit int  `form:"limit" binding:"min=0"`
	Fresh bool `form:"fresh"` // Bypass the response cache
}

// SessionFilterRequest is the body of a session filter change
type SessionFilterRequest struct {
	Category         string `json:"category"`
	ProjectType      string `json:"project_type"`
	HighlightZip     string `json:"highlight_zip"`
	HighlightCluster *int   `json:"highlight_cluster"`
}

// SessionViewQuery represents query parameters for rendering a session
type SessionViewQuery struct {
	Zoom   float64 `form:"zoom" binding:"min=0,max=24"`
	Simple bool    `form:"simple"`
}
