// Package experience implements the second, independent model pass: pulling
// discrete life events, achievements, struggles, and transitions out of a
// transcript, plus the dedup-guarded persistence of what survives.
package experience

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ninjaos/followup/internal/config"
	"github.com/ninjaos/followup/internal/core/common"
	"github.com/ninjaos/followup/internal/llm"
	"github.com/ninjaos/followup/internal/model"
)

// MinTranscriptChars is the floor below which no model call is made.
const MinTranscriptChars = 100

// MinConfidence drops low-confidence extractions. The rubric tells the
// model to prefer omission over fabrication; this is the backstop.
const MinConfidence = 60

type Extractor struct {
	LLM      llm.Client
	Prompts  config.ExperiencePrompts
	MaxChars int
}

func NewExtractor(llmClient llm.Client, prompts config.ExperiencePrompts, maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Extractor{
		LLM:      llmClient,
		Prompts:  prompts,
		MaxChars: maxChars,
	}
}

type candidate struct {
	Type       string `json:"type"`
	Summary    string `json:"summary"`
	Valence    string `json:"valence"`
	Magnitude  int    `json:"magnitude"`
	Confidence int    `json:"confidence"`
}

type extractedExperiences struct {
	Experiences []candidate `json:"experiences"`
}

// Extract returns experience candidates for the interaction. Experience
// extraction is explicitly non-blocking: every failure path logs and
// returns an empty list rather than propagating.
//
// Prompt slots: user = (contact name, transcript).
func (e *Extractor) Extract(ctx context.Context, in *model.Interaction, contactName string) []model.Experience {
	text := strings.TrimSpace(in.Text())
	if len(text) < MinTranscriptChars {
		return nil
	}

	user := fmt.Sprintf(e.Prompts.User, contactName, common.Truncate(text, e.MaxChars))

	response, err := e.LLM.Generate(ctx, e.Prompts.System, user)
	if err != nil {
		log.Printf("experience extraction failed for interaction %s: %v", in.ID, err)
		return nil
	}

	parsed, err := common.ParseJSON[extractedExperiences](response)
	if err != nil {
		log.Printf("experience parse failed for interaction %s: %v", in.ID, err)
		return nil
	}

	now := time.Now().UTC()
	var out []model.Experience
	for _, c := range parsed.Experiences {
		if !model.KnownExperienceType(c.Type) {
			log.Printf("dropping experience with unknown type %q (interaction %s)", c.Type, in.ID)
			continue
		}
		if c.Confidence < MinConfidence {
			continue
		}
		summary := strings.TrimSpace(c.Summary)
		if summary == "" {
			continue
		}
		out = append(out, model.Experience{
			ID:            uuid.New().String(),
			ContactID:     in.ContactID,
			InteractionID: in.ID,
			Type:          c.Type,
			Summary:       summary,
			Valence:       c.Valence,
			Magnitude:     clampMagnitude(c.Magnitude),
			Confidence:    c.Confidence,
			OccurredAt:    in.OccurredAt,
			CreatedAt:     now,
		})
	}
	return out
}

func clampMagnitude(m int) int {
	if m < 1 {
		return 1
	}
	if m > 5 {
		return 5
	}
	return m
}
