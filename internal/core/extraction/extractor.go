// Package extraction implements the first model pass over an interaction:
// turning a raw transcript into structured relationship data (FORD updates,
// needs, offers, action items, key topics).
package extraction

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ninjaos/followup/internal/config"
	"github.com/ninjaos/followup/internal/core/common"
	"github.com/ninjaos/followup/internal/llm"
	"github.com/ninjaos/followup/internal/model"
)

// MinTranscriptChars is the floor below which no model call is made; the
// stage short-circuits to an empty completed result.
const MinTranscriptChars = 50

type Extractor struct {
	LLM      llm.Client
	Prompts  config.ExtractionPrompts
	MaxChars int
}

func NewExtractor(llmClient llm.Client, prompts config.ExtractionPrompts, maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Extractor{
		LLM:      llmClient,
		Prompts:  prompts,
		MaxChars: maxChars,
	}
}

// Extract runs the relationship-extraction pass. It never returns a Go
// error: any model or parse failure is absorbed into a result with status
// "failed" so the caller can persist it and move on.
//
// Prompt slots: user = (contact context, transcript).
func (e *Extractor) Extract(ctx context.Context, in *model.Interaction, contact *model.Person) model.ExtractionResult {
	text := strings.TrimSpace(in.Text())
	if len(text) < MinTranscriptChars {
		// Too short to carry relationship information. Completed, not
		// failed: there is nothing to retry.
		return model.ExtractionResult{
			Status:      model.ExtractionCompleted,
			Data:        &model.ExtractionData{},
			ProcessedAt: time.Now().UTC(),
		}
	}

	user := fmt.Sprintf(e.Prompts.User, contactContext(contact), common.Truncate(text, e.MaxChars))

	response, err := e.LLM.Generate(ctx, e.Prompts.System, user)
	if err != nil {
		log.Printf("extraction failed for interaction %s: %v", in.ID, err)
		return failedResult(err)
	}

	data, err := common.ParseJSON[model.ExtractionData](response)
	if err != nil {
		log.Printf("extraction parse failed for interaction %s: %v", in.ID, err)
		return failedResult(err)
	}

	normalize(&data)
	return model.ExtractionResult{
		Status:      model.ExtractionCompleted,
		Data:        &data,
		ProcessedAt: time.Now().UTC(),
	}
}

func failedResult(err error) model.ExtractionResult {
	return model.ExtractionResult{
		Status:      model.ExtractionFailed,
		Error:       err.Error(),
		ProcessedAt: time.Now().UTC(),
	}
}

// contactContext renders what is already known about the contact so the
// model can be instructed to report only new information.
func contactContext(contact *model.Person) string {
	if contact == nil {
		return "No existing contact context."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contact: %s (segment %s)\n", contact.Name, contact.Segment)
	if contact.Profession != "" {
		fmt.Fprintf(&b, "Profession: %s\n", contact.Profession)
	}
	if contact.ActiveDeal {
		b.WriteString("Has an active transaction with the user.\n")
	}
	writeField(&b, "Family", contact.Family)
	writeField(&b, "Occupation", contact.Occupation)
	writeField(&b, "Recreation", contact.Recreation)
	writeField(&b, "Dreams", contact.Dreams)
	if len(contact.Needs) > 0 {
		fmt.Fprintf(&b, "Known needs: %s\n", strings.Join(contact.Needs, "; "))
	}
	if len(contact.Offers) > 0 {
		fmt.Fprintf(&b, "Known offers: %s\n", strings.Join(contact.Offers, "; "))
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

// normalize canonicalizes the model output at the boundary so downstream
// merge logic never branches on casing or whitespace variance.
func normalize(d *model.ExtractionData) {
	d.Family = strings.TrimSpace(d.Family)
	d.Occupation = strings.TrimSpace(d.Occupation)
	d.Recreation = strings.TrimSpace(d.Recreation)
	d.Dreams = strings.TrimSpace(d.Dreams)
	d.Profession = strings.TrimSpace(d.Profession)
	d.Summary = strings.TrimSpace(d.Summary)
	d.Needs = common.DedupeStrings(d.Needs)
	d.Offers = common.DedupeStrings(d.Offers)
	d.ActionItems = common.DedupeStrings(d.ActionItems)
	d.KeyTopics = common.DedupeStrings(d.KeyTopics)
}
