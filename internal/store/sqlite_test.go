package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ninjaos/followup/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedInteraction(t *testing.T, s *SQLite, id, contactID string, occurredAt time.Time) {
	t.Helper()
	err := s.CreateInteraction(context.Background(), "default", &model.Interaction{
		ID:         id,
		ContactID:  contactID,
		Type:       model.InteractionCall,
		Transcript: "We caught up about the house and the kids.",
		OccurredAt: occurredAt,
		CreatedAt:  occurredAt,
	})
	assert.NoError(t, err)
}

func TestInteractionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	occurred := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedInteraction(t, s, "int-1", "c-1", occurred)

	in, err := s.GetInteraction(ctx, "default", "int-1")
	assert.NoError(t, err)
	assert.Equal(t, "c-1", in.ContactID)
	assert.Equal(t, occurred, in.OccurredAt)
	assert.Nil(t, in.DeletedAt)

	_, err = s.GetInteraction(ctx, "default", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Tenancy: another user cannot see the row.
	_, err = s.GetInteraction(ctx, "other", "int-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetExtractedDataAndListUnprocessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedInteraction(t, s, "int-old", "c-1", base)
	seedInteraction(t, s, "int-failed", "c-1", base.Add(time.Hour))
	seedInteraction(t, s, "int-done", "c-1", base.Add(2*time.Hour))
	seedInteraction(t, s, "int-gone", "c-1", base.Add(3*time.Hour))

	assert.NoError(t, s.SetExtractedData(ctx, "default", "int-failed", model.ExtractionResult{
		Status: model.ExtractionFailed, Error: "timeout", ProcessedAt: base,
	}))
	assert.NoError(t, s.SetExtractedData(ctx, "default", "int-done", model.ExtractionResult{
		Status: model.ExtractionCompleted, Data: &model.ExtractionData{}, ProcessedAt: base,
	}))
	assert.NoError(t, s.SoftDeleteInteraction(ctx, "default", "int-gone"))

	pending, err := s.ListUnprocessed(ctx, "default", 10)
	assert.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, "int-old", pending[0].ID)
	assert.Equal(t, "int-failed", pending[1].ID)

	err = s.SetExtractedData(ctx, "default", "missing", model.ExtractionResult{Status: model.ExtractionCompleted})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonRoundTripAndUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	p := &model.Person{
		ID:        "c-1",
		Name:      "Maria Ortiz",
		Segment:   model.SegmentA,
		Needs:     []string{"a good CPA"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	assert.NoError(t, s.CreatePerson(ctx, "default", p))

	p.Family = "Husband Tom"
	p.Needs = append(p.Needs, "staging referral")
	assert.NoError(t, s.UpdatePerson(ctx, "default", p))

	got, err := s.GetPerson(ctx, "default", "c-1")
	assert.NoError(t, err)
	assert.Equal(t, "Husband Tom", got.Family)
	assert.Equal(t, []string{"a good CPA", "staging referral"}, got.Needs)

	all, err := s.ListPersons(ctx, "default")
	assert.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestExperienceDedupIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	exp := &model.Experience{
		ID: "e-1", ContactID: "c-1", InteractionID: "int-1",
		Type: model.ExperienceLifeEvent, Summary: "First baby born",
		Magnitude: 5, Confidence: 90, OccurredAt: now, CreatedAt: now,
	}
	assert.NoError(t, s.CreateExperience(ctx, "default", exp))

	dup := *exp
	dup.ID = "e-2"
	err := s.CreateExperience(ctx, "default", &dup)
	assert.True(t, IsDuplicate(err))

	// A different type from the same interaction is fine.
	other := *exp
	other.ID = "e-3"
	other.Type = model.ExperienceAchievement
	assert.NoError(t, s.CreateExperience(ctx, "default", &other))

	found, err := s.FindExperience(ctx, "default", "c-1", model.ExperienceLifeEvent, "int-1")
	assert.NoError(t, err)
	assert.Equal(t, "e-1", found.ID)

	list, err := s.ListExperiences(ctx, "default", "c-1")
	assert.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOneActiveSignalPerContact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	sig := &model.FollowUpSignal{
		ID: "s-1", ContactID: "c-1", InteractionID: "int-1",
		Priority: 80, Reasoning: "meeting", Status: model.SignalPending,
		ExpiresAt: now.Add(model.SignalTTL), CreatedAt: now,
	}
	assert.NoError(t, s.CreateSignal(ctx, "default", sig))

	second := *sig
	second.ID = "s-2"
	second.InteractionID = "int-2"
	err := s.CreateSignal(ctx, "default", &second)
	assert.True(t, IsDuplicate(err))

	active, err := s.GetActiveSignal(ctx, "default", "c-1")
	assert.NoError(t, err)
	assert.Equal(t, "s-1", active.ID)

	// A different contact is unaffected.
	third := *sig
	third.ID = "s-3"
	third.ContactID = "c-2"
	assert.NoError(t, s.CreateSignal(ctx, "default", &third))
}

func TestExpireStaleSignalsReleasesSlot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	stale := &model.FollowUpSignal{
		ID: "s-1", ContactID: "c-1", InteractionID: "int-1",
		Priority: 70, Reasoning: "call", Status: model.SignalPending,
		ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-8 * 24 * time.Hour),
	}
	assert.NoError(t, s.CreateSignal(ctx, "default", stale))

	n, err := s.ExpireStaleSignals(ctx, "default", now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.GetActiveSignal(ctx, "default", "c-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// The slot is free again for a fresh signal.
	fresh := &model.FollowUpSignal{
		ID: "s-2", ContactID: "c-1", InteractionID: "int-2",
		Priority: 75, Reasoning: "meeting", Status: model.SignalPending,
		ExpiresAt: now.Add(model.SignalTTL), CreatedAt: now,
	}
	assert.NoError(t, s.CreateSignal(ctx, "default", fresh))
}

func TestDraftRoundTripWithMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	d := &model.GeneratedDraft{
		ID: "d-1", ContactID: "c-1", InteractionID: "int-1",
		Type: model.DraftTask, Title: "Reach out to Dana Kitch",
		Content: "Ask Dana to quote the remodel.", Status: model.DraftPending,
		Metadata: model.DraftMetadata{
			ThirdParty:          true,
			ThirdPartyContactID: "c-dana",
			NeedsManualLinking:  true,
		},
		CreatedAt: now,
	}
	assert.NoError(t, s.CreateDraft(ctx, "default", d))

	list, err := s.ListDrafts(ctx, "default", "int-1")
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, list[0].Metadata.ThirdParty)
	assert.Equal(t, "c-dana", list[0].Metadata.ThirdPartyContactID)
	assert.True(t, list[0].Metadata.NeedsManualLinking)
}

func TestVoicePatternUpsertBumpsFrequency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &model.VoiceProfilePattern{
		ID: "v-1", Category: model.VoiceSignoff, Value: "Talk soon", Source: "interaction:int-1", CreatedAt: now,
	}
	assert.NoError(t, s.UpsertVoicePattern(ctx, "default", first))

	again := &model.VoiceProfilePattern{
		ID: "v-2", Category: model.VoiceSignoff, Value: "Talk soon", Source: "interaction:int-2", CreatedAt: now,
	}
	assert.NoError(t, s.UpsertVoicePattern(ctx, "default", again))

	patterns, err := s.ListVoicePatterns(ctx, "default")
	assert.NoError(t, err)
	assert.Len(t, patterns, 1)
	assert.Equal(t, 2, patterns[0].Frequency)
	assert.Equal(t, "v-1", patterns[0].ID)
}

func TestListVoicePatternsFiltersByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, p := range []model.VoiceProfilePattern{
		{Category: model.VoiceGreeting, Value: "Hey there"},
		{Category: model.VoiceSignoff, Value: "Talk soon"},
		{Category: model.VoiceAvoidPattern, Value: "Per our conversation"},
	} {
		p.ID = "v-" + string(rune('a'+i))
		p.CreatedAt = now
		assert.NoError(t, s.UpsertVoicePattern(ctx, "default", &p))
	}

	got, err := s.ListVoicePatterns(ctx, "default", model.VoiceGreeting, model.VoiceSignoff)
	assert.NoError(t, err)
	assert.Len(t, got, 2)

	all, err := s.ListVoicePatterns(ctx, "default")
	assert.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFeedbackLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	fb := &model.DraftFeedback{
		ID: "fb-1", DraftID: "d-1",
		OriginalContent: "Per our conversation...",
		EditedContent:   "As we discussed...",
		CreatedAt:       now,
	}
	assert.NoError(t, s.CreateFeedback(ctx, "default", fb))

	pending, err := s.ListUnprocessedFeedback(ctx, "default", 10)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)

	insights := json.RawMessage(`{"tone_shift": ["warmer"]}`)
	assert.NoError(t, s.MarkFeedbackProcessed(ctx, "default", "fb-1", insights))

	pending, err = s.ListUnprocessedFeedback(ctx, "default", 10)
	assert.NoError(t, err)
	assert.Empty(t, pending)

	got, err := s.GetFeedback(ctx, "default", "fb-1")
	assert.NoError(t, err)
	assert.True(t, got.Processed)
	assert.JSONEq(t, string(insights), string(got.LearnedInsights))
}
