package view

import (
	"github.com/propscout/propscout/enrichment"
)

// Problem is a descriptor dropped from a selection, in printable form.
type Problem struct {
	Descriptor string `json:"descriptor"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

// Report is everything a renderer needs to show one enrichment run.
type Report struct {
	PropertyID int64               `json:"property_id"`
	Cached     bool                `json:"cached"`
	Message    string              `json:"message,omitempty"`
	Metadata   enrichment.Metadata `json:"metadata"`
	Views      []View              `json:"sections"`
	Problems   []Problem           `json:"problems,omitempty"`

	// Selection is the raw registry output the views were built from.
	Selection enrichment.Selection `json:"-"`
}

// NewReport runs resp through registry and builds its views.
func NewReport(resp *enrichment.Response, registry *enrichment.Registry) *Report {
	sel := registry.Select(resp.Results())
	r := &Report{
		PropertyID: resp.PropertyID,
		Cached:     resp.Cached,
		Message:    resp.Message,
		Metadata:   resp.Enrichment.Metadata,
		Views:      Build(sel.Sections),
		Selection:  sel,
	}
	for _, f := range sel.Failures {
		r.Problems = append(r.Problems, Problem{Descriptor: f.Descriptor, Stage: f.Stage, Error: f.Err.Error()})
	}
	return r
}
