// Package voice maintains the user's voice profile: stylistic preferences
// learned from draft edits plus speech patterns harvested from transcripts.
// The profile is the system's only personalization memory; the draft
// composer folds it into every prompt.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ninjaos/followup/internal/config"
	"github.com/ninjaos/followup/internal/core/common"
	"github.com/ninjaos/followup/internal/llm"
	"github.com/ninjaos/followup/internal/model"
)

// MaxItemsPerCategory caps how many entries one feedback record may
// contribute to each preference category.
const MaxItemsPerCategory = 3

// Store is the slice of the storage layer the learner needs.
type Store interface {
	UpsertVoicePattern(ctx context.Context, userID string, p *model.VoiceProfilePattern) error
	MarkFeedbackProcessed(ctx context.Context, userID, id string, insights json.RawMessage) error
}

type Learner struct {
	Store   Store
	LLM     llm.Client
	Prompts config.PreferencePrompts
}

func NewLearner(s Store, llmClient llm.Client, prompts config.PreferencePrompts) *Learner {
	return &Learner{
		Store:   s,
		LLM:     llmClient,
		Prompts: prompts,
	}
}

type phraseSwap struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// insights is the fixed diff rubric the model fills in.
type insights struct {
	PhraseReplacements []phraseSwap `json:"phrase_replacements"`
	ToneShift          []string     `json:"tone_shift"`
	LengthChange       string       `json:"length_change"`
	StructuralNotes    []string     `json:"structural_notes"`
	RemovedContent     []string     `json:"removed_content"`
	AddedContent       []string     `json:"added_content"`
}

// ProcessFeedback runs the diff pass over one original/edited pair, stores
// the reusable preferences, and marks the feedback processed so it is
// never consumed twice. Returns how many profile entries were written.
//
// Prompt slots: user = (original content, edited content).
func (l *Learner) ProcessFeedback(ctx context.Context, userID string, fb *model.DraftFeedback) (int, error) {
	if fb.Processed {
		return 0, nil
	}

	user := fmt.Sprintf(l.Prompts.User, fb.OriginalContent, fb.EditedContent)
	response, err := l.LLM.Generate(ctx, l.Prompts.System, user)
	if err != nil {
		return 0, fmt.Errorf("preference extraction failed for feedback %s: %w", fb.ID, err)
	}

	parsed, err := common.ParseJSON[insights](response)
	if err != nil {
		return 0, fmt.Errorf("preference parse failed for feedback %s: %w", fb.ID, err)
	}

	stored := 0
	source := "feedback:" + fb.ID

	stored += l.upsertAll(ctx, userID, model.VoiceTonePreference, cap3(parsed.ToneShift), source)

	avoid := parsed.RemovedContent
	for _, s := range parsed.PhraseReplacements {
		if s.From != "" {
			avoid = append(avoid, s.From)
		}
	}
	stored += l.upsertAll(ctx, userID, model.VoiceAvoidPattern, cap3(avoid), source)

	preferred := parsed.AddedContent
	for _, s := range parsed.PhraseReplacements {
		if s.To != "" {
			preferred = append(preferred, s.To)
		}
	}
	preferred = append(preferred, parsed.StructuralNotes...)
	stored += l.upsertAll(ctx, userID, model.VoicePreferredPattern, cap3(preferred), source)

	if parsed.LengthChange != "" {
		stored += l.upsertAll(ctx, userID, model.VoiceLengthPreference, []string{parsed.LengthChange}, source)
	}

	blob, _ := json.Marshal(parsed)
	if err := l.Store.MarkFeedbackProcessed(ctx, userID, fb.ID, blob); err != nil {
		return stored, fmt.Errorf("failed to mark feedback %s processed: %w", fb.ID, err)
	}
	return stored, nil
}

func (l *Learner) upsertAll(ctx context.Context, userID, category string, values []string, source string) int {
	count := 0
	for _, v := range common.DedupeStrings(values) {
		p := &model.VoiceProfilePattern{
			ID:        uuid.New().String(),
			Category:  category,
			Value:     v,
			Source:    source,
			CreatedAt: time.Now().UTC(),
		}
		if err := l.Store.UpsertVoicePattern(ctx, userID, p); err != nil {
			log.Printf("failed to store %s pattern: %v", category, err)
			continue
		}
		count++
	}
	return count
}

func cap3(values []string) []string {
	if len(values) > MaxItemsPerCategory {
		return values[:MaxItemsPerCategory]
	}
	return values
}
