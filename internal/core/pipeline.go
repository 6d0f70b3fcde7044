// Package core wires the stages into the interaction-processing pipeline.
//
// The orchestrator is an explicit sequence with per-stage failure
// isolation: one stage failing logs and zeroes its counts, it never blocks
// the stages after it. Only the initial load/persist path can fail the
// whole call.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ninjaos/followup/internal/config"
	"github.com/ninjaos/followup/internal/core/common"
	"github.com/ninjaos/followup/internal/core/draft"
	"github.com/ninjaos/followup/internal/core/experience"
	"github.com/ninjaos/followup/internal/core/extraction"
	"github.com/ninjaos/followup/internal/core/signal"
	"github.com/ninjaos/followup/internal/core/voice"
	"github.com/ninjaos/followup/internal/llm"
	"github.com/ninjaos/followup/internal/model"
	"github.com/ninjaos/followup/internal/store"
)

type Pipeline struct {
	Store       store.Store
	Extractor   *extraction.Extractor
	Experiences *experience.Extractor
	Recorder    *experience.Recorder
	Signals     *signal.Composer
	Drafts      *draft.Composer
	Harvester   *voice.Harvester
	Learner     *voice.Learner
}

func NewPipeline(s store.Store, llmClient llm.Client, cfg *config.Config) *Pipeline {
	maxChars := cfg.Pipeline.MaxPromptChars
	return &Pipeline{
		Store:       s,
		Extractor:   extraction.NewExtractor(llmClient, cfg.Extraction, maxChars),
		Experiences: experience.NewExtractor(llmClient, cfg.Experience, maxChars),
		Recorder:    experience.NewRecorder(s),
		Signals:     signal.NewComposer(s),
		Drafts:      draft.NewComposer(s, llmClient, cfg.Drafts, maxChars),
		Harvester:   voice.NewHarvester(s, llmClient, cfg.Voice, maxChars),
		Learner:     voice.NewLearner(s, llmClient, cfg.Preferences),
	}
}

// ProcessResult reports what one pipeline run produced. Success covers the
// core extraction path only; stage failures show up as zeroed counts.
type ProcessResult struct {
	Success          bool   `json:"success"`
	InteractionID    string `json:"interaction_id"`
	ExtractionStatus string `json:"extraction_status"`
	ExperiencesAdded int    `json:"experiences_added"`
	DraftsCreated    int    `json:"drafts_created"`
	SignalCreated    bool   `json:"signal_created"`
	VoicePatterns    int    `json:"voice_patterns"`
	Skipped          bool   `json:"skipped,omitempty"`
}

// ProcessInteraction runs the full stage sequence for one interaction.
// Re-running is safe: extraction overwrites its previous result, and the
// experience/signal stages are guarded by their uniqueness checks.
func (p *Pipeline) ProcessInteraction(ctx context.Context, userID, interactionID string) (*ProcessResult, error) {
	in, err := p.Store.GetInteraction(ctx, userID, interactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction %s: %w", interactionID, err)
	}
	if in.DeletedAt != nil {
		return &ProcessResult{Success: true, InteractionID: in.ID, Skipped: true}, nil
	}

	var contact *model.Person
	if in.ContactID != "" {
		contact, err = p.Store.GetPerson(ctx, userID, in.ContactID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("failed to load contact %s for interaction %s: %v", in.ContactID, in.ID, err)
		}
	}

	// Stage 1: relationship extraction. Failures land in the result blob,
	// not in err.
	result := p.Extractor.Extract(ctx, in, contact)

	res := &ProcessResult{
		Success:          true,
		InteractionID:    in.ID,
		ExtractionStatus: result.Status,
	}

	// Side extraction on long transcripts, plus summary backfill.
	res.VoicePatterns = p.Harvester.Harvest(ctx, userID, in)
	if in.Summary == "" && result.Data != nil && result.Data.Summary != "" {
		if err := p.Store.SetInteractionSummary(ctx, userID, in.ID, result.Data.Summary); err != nil {
			log.Printf("failed to backfill summary for interaction %s: %v", in.ID, err)
		}
	}

	if err := p.Store.SetExtractedData(ctx, userID, in.ID, result); err != nil {
		return nil, fmt.Errorf("failed to persist extraction for interaction %s: %w", in.ID, err)
	}

	if contact == nil || result.Status != model.ExtractionCompleted {
		return res, nil
	}

	// Stage 2: merge what extraction learned into the contact record.
	if !result.Data.Empty() {
		mergeContact(contact, result.Data)
		if err := p.Store.UpdatePerson(ctx, userID, contact); err != nil {
			log.Printf("failed to merge contact %s (interaction %s): %v", contact.ID, in.ID, err)
		}
	}

	// Stage 3: experiences, guarded against duplicates.
	candidates := p.Experiences.Extract(ctx, in, contact.Name)
	created := p.Recorder.Record(ctx, userID, candidates)
	res.ExperiencesAdded = len(created)

	// Stage 4: signal, scored over everything this interaction produced
	// (a re-run sees the previously recorded experiences).
	interactionExps := created
	if len(interactionExps) == 0 {
		interactionExps = p.experiencesFor(ctx, userID, contact.ID, in.ID)
	}
	sig, err := p.Signals.Compose(ctx, userID, signal.Input{
		Interaction: in,
		Contact:     contact,
		Data:        result.Data,
		Experiences: interactionExps,
	})
	if err != nil {
		log.Printf("signal composition failed for contact %s (interaction %s): %v", contact.ID, in.ID, err)
	}
	res.SignalCreated = sig != nil

	// Stage 5: drafts.
	drafts, err := p.Drafts.Compose(ctx, userID, in, contact)
	if err != nil {
		log.Printf("draft composition failed for contact %s (interaction %s): %v", contact.ID, in.ID, err)
	}
	res.DraftsCreated = len(drafts)

	return res, nil
}

func (p *Pipeline) experiencesFor(ctx context.Context, userID, contactID, interactionID string) []model.Experience {
	all, err := p.Store.ListExperiences(ctx, userID, contactID)
	if err != nil {
		log.Printf("failed to list experiences for contact %s: %v", contactID, err)
		return nil
	}
	var out []model.Experience
	for _, e := range all {
		if e.InteractionID == interactionID {
			out = append(out, e)
		}
	}
	return out
}

// mergeContact applies extraction output with append-not-overwrite
// semantics: FORD fields grow a dated entry, needs/offers become a
// deduplicated union, profession is backfilled only when empty.
func mergeContact(contact *model.Person, data *model.ExtractionData) {
	contact.Family = appendFORD(contact.Family, data.Family)
	contact.Occupation = appendFORD(contact.Occupation, data.Occupation)
	contact.Recreation = appendFORD(contact.Recreation, data.Recreation)
	contact.Dreams = appendFORD(contact.Dreams, data.Dreams)

	contact.Needs = common.DedupeStrings(contact.Needs, data.Needs)
	contact.Offers = common.DedupeStrings(contact.Offers, data.Offers)

	if contact.Profession == "" && data.Profession != "" {
		contact.Profession = data.Profession
	}
}

func appendFORD(existing, update string) string {
	if update == "" {
		return existing
	}
	if existing == "" {
		return update
	}
	return fmt.Sprintf("%s\n[%s] %s", existing, time.Now().UTC().Format("Jan 2, 2006"), update)
}

// LearnPending consumes unprocessed draft feedback. Each record is
// processed at most once; failures leave it unprocessed for the next run.
func (p *Pipeline) LearnPending(ctx context.Context, userID string, limit int) (processed, patterns int) {
	pending, err := p.Store.ListUnprocessedFeedback(ctx, userID, limit)
	if err != nil {
		log.Printf("failed to list pending feedback: %v", err)
		return 0, 0
	}
	for i := range pending {
		n, err := p.Learner.ProcessFeedback(ctx, userID, &pending[i])
		if err != nil {
			log.Printf("feedback %s not processed: %v", pending[i].ID, err)
			continue
		}
		processed++
		patterns += n
	}
	return processed, patterns
}

// ExpireSignals marks stale pending signals expired.
func (p *Pipeline) ExpireSignals(ctx context.Context, userID string) int {
	n, err := p.Store.ExpireStaleSignals(ctx, userID, time.Now().UTC())
	if err != nil {
		log.Printf("signal expiry pass failed: %v", err)
		return 0
	}
	return n
}
