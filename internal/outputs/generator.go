// Package outputs renders the downstream deliverables of an approved
// feature: a stakeholder one-pager and an epic skeleton ready to paste
// into the tracking system. Outputs are plain markdown written under
// the fledge/ data directory next to the feature records.
package outputs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/fledgehq/fledge/internal/feature"
)

// Dir is the subdirectory of the fledge/ data directory that holds
// generated outputs.
const Dir = "outputs"

// Generator renders feature deliverables from embedded templates.
type Generator struct {
	onePager *template.Template
	epic     *template.Template
}

// NewGenerator parses the deliverable templates.
func NewGenerator() (*Generator, error) {
	onePager, err := template.New("one-pager").Parse(onePagerTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing one-pager template: %w", err)
	}
	epic, err := template.New("epic").Parse(epicTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing epic template: %w", err)
	}
	return &Generator{onePager: onePager, epic: epic}, nil
}

// templateData is the view of a feature the templates render.
type templateData struct {
	Rec           *feature.FeatureRecord
	Context       *feature.ContextFacts
	LatestContext *feature.ContextSubmission
	Design        *feature.DesignFacts
	Business      *feature.BusinessFacts
	Engineering   *feature.EngineeringFacts
	Approval      *feature.Decision
}

// Generate writes the one-pager and epic skeleton for an approved
// feature and returns the written paths.
func (g *Generator) Generate(root string, rec *feature.FeatureRecord) ([]string, error) {
	data := templateData{
		Rec:         rec,
		Context:     rec.Tracks[feature.TrackContext].Context,
		Design:      rec.Tracks[feature.TrackDesign].Design,
		Business:    rec.Tracks[feature.TrackBusinessCase].Business,
		Engineering: rec.Tracks[feature.TrackEngineering].Engineering,
	}
	if subs := data.Context.Submissions; len(subs) > 0 {
		data.LatestContext = &subs[len(subs)-1]
	}
	for i := len(rec.Decisions) - 1; i >= 0; i-- {
		if rec.Decisions[i].Decision == "approved" {
			data.Approval = &rec.Decisions[i]
			break
		}
	}

	outDir := filepath.Join(root, feature.DataDir, Dir, rec.ProductID, rec.Slug)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	for _, doc := range []struct {
		name string
		tmpl *template.Template
	}{
		{"one-pager.md", g.onePager},
		{"epic.md", g.epic},
	} {
		var buf bytes.Buffer
		if err := doc.tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("rendering %s: %w", doc.name, err)
		}
		path := filepath.Join(outDir, doc.name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", doc.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

const onePagerTemplate = `# {{.Rec.Title}}

**Product:** {{.Rec.ProductID}}
{{- if .Rec.Priority}}
**Priority:** {{.Rec.Priority}}
{{- end}}
{{- if .Approval}}
**Approved:** {{.Approval.Timestamp}}{{if .Approval.DecidedBy}} by {{.Approval.DecidedBy}}{{end}}
{{- end}}

## Summary

{{with .LatestContext}}{{.Summary}}{{else}}_No context summary recorded._{{end}}

## Business Case

{{- if .Business.CaseDocRef}}
See {{.Business.CaseDocRef}}.
{{- else}}
_No business case document recorded._
{{- end}}
{{- range .Business.Approvals}}
- {{.Approver}}: {{if .Approved}}approved{{else}}rejected{{end}}{{if .Note}} ({{.Note}}){{end}}
{{- end}}

## Design

{{- if .Design.SpecDocRef}}
Spec: {{.Design.SpecDocRef}}
{{- end}}
{{- range $type, $ref := .Rec.Artifacts}}
- {{$type}}: {{$ref}}
{{- end}}
`

const epicTemplate = `# Epic: {{.Rec.Title}}

Slug: {{.Rec.Slug}}
Product: {{.Rec.ProductID}}

## Components

{{- range .Engineering.Components}}
- [ ] {{.}}
{{- end}}
{{- if not .Engineering.Components}}
_No components identified._
{{- end}}

## Decisions

{{- range .Engineering.ADRs}}
- {{.ID}}: {{.Title}} ({{.Status}})
{{- end}}

## Estimate

{{- with .Engineering.Estimate}}
{{.Effort}} {{.Unit}}{{if .Confidence}} (confidence: {{.Confidence}}){{end}}
{{- else}}
_No estimate recorded._
{{- end}}

## Risks

{{- range .Engineering.Risks}}
- [{{.Impact}}] {{.Description}}{{if .Mitigation}} (mitigation: {{.Mitigation}}){{end}}
{{- end}}
{{- if not .Engineering.Risks}}
_No risks recorded._
{{- end}}
`
