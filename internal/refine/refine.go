// Package refine improves extracted geometry using an LLM pass over the
// blueprint text. Refinement is strictly best-effort: any failure (API
// error, unparseable response, implausible figures) falls back to the
// deterministic extractor output.
package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/config"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024

	// maxDocumentChars caps the blueprint text sent per request.
	maxDocumentChars = 30000

	refinedConfidence = 0.9
)

const systemText = "You are a construction estimator reading residential blueprint text. Return valid JSON matching the requested schema. Use null for figures not present in the document; never guess."

const promptTemplate = `Blueprint text:
%s

Preliminary floor areas (from pattern extraction):
%s

Review the blueprint text and correct the floor areas where the extraction missed or misread a figure. Return a valid JSON object:
{"basement_sqft": <number or null>, "main_sqft": <number or null>, "upper_sqft": <number or null>, "garage_sqft": <number or null>, "notes": "<brief explanation of corrections, or empty>"}`

// Refiner runs the LLM refinement pass.
type Refiner struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	log       *zap.Logger
}

// New builds a Refiner. A nil client yields a nil Refiner, which Refine
// treats as a no-op.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Refiner {
	if client == nil {
		return nil
	}
	m := cfg.Model
	if m == "" {
		m = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Refiner{
		client:    client,
		model:     m,
		maxTokens: maxTokens,
		log:       zap.L().Named("refine"),
	}
}

type refinement struct {
	BasementSqft *float64 `json:"basement_sqft"`
	MainSqft     *float64 `json:"main_sqft"`
	UpperSqft    *float64 `json:"upper_sqft"`
	GarageSqft   *float64 `json:"garage_sqft"`
	Notes        string   `json:"notes"`
}

// Refine returns geometry with LLM-corrected floor areas, or the input
// unchanged when refinement is disabled or fails.
func (r *Refiner) Refine(ctx context.Context, text string, g model.ProjectGeometry) model.ProjectGeometry {
	if r == nil {
		return g
	}

	if len(text) > maxDocumentChars {
		text = text[:maxDocumentChars]
	}

	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		System:    []anthropic.SystemBlock{{Text: systemText}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf(promptTemplate, text, summarizeAreas(g)),
		}},
	})
	if err != nil {
		r.log.Warn("refinement call failed, keeping extracted geometry", zap.Error(err))
		return g
	}
	resp.Usage.LogUsage(r.model, "refine")

	var ref refinement
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &ref); err != nil {
		r.log.Warn("unparseable refinement response, keeping extracted geometry", zap.Error(err))
		return g
	}

	return apply(g, ref)
}

// apply merges plausible refined areas into the geometry and recomputes the
// derived figures. Null or non-positive areas leave the extracted value.
func apply(g model.ProjectGeometry, ref refinement) model.ProjectGeometry {
	out := g
	out.FloorAreas = make(map[model.FloorName]float64, len(g.FloorAreas))
	for k, v := range g.FloorAreas {
		out.FloorAreas[k] = v
	}

	changed := false
	for _, f := range []struct {
		name model.FloorName
		area *float64
	}{
		{model.FloorBasement, ref.BasementSqft},
		{model.FloorMain, ref.MainSqft},
		{model.FloorUpper, ref.UpperSqft},
		{model.FloorGarage, ref.GarageSqft},
	} {
		if f.area == nil || *f.area <= 0 {
			continue
		}
		if out.FloorAreas[f.name] != *f.area {
			out.FloorAreas[f.name] = *f.area
			changed = true
		}
	}

	if !changed {
		return g
	}

	out.TotalArea = out.LivableArea()
	out.Floors = 0
	for _, f := range []model.FloorName{model.FloorBasement, model.FloorMain, model.FloorUpper} {
		if out.FloorArea(f) > 0 {
			out.Floors++
		}
	}
	out.ExteriorWall.Length = out.ExteriorPerimeter()
	out.InteriorWall.Length = out.InteriorWallLength(model.InteriorWallMultiplier)
	out.Confidence = refinedConfidence
	if ref.Notes != "" {
		out.Notes = append(out.Notes, "refined: "+ref.Notes)
	}
	return out
}

func summarizeAreas(g model.ProjectGeometry) string {
	var b strings.Builder
	for _, f := range []model.FloorName{model.FloorBasement, model.FloorMain, model.FloorUpper, model.FloorGarage} {
		if a := g.FloorArea(f); a > 0 {
			fmt.Fprintf(&b, "%s: %.2f sqft\n", f, a)
		}
	}
	if b.Len() == 0 {
		return "(none found)"
	}
	return b.String()
}

func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
