// Package draft generates candidate communications (emails, handwritten
// notes, tasks) for review. The model proposes; deterministic server-side
// policy disposes: note justification, placeholder rejection, and
// third-party contact resolution all happen after the call.
package draft

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

// MinTranscriptChars is deliberately low: real follow-ups can be terse,
// and even brief action-item text deserves a draft.
const MinTranscriptChars = 20

// Store is the slice of the storage layer the composer needs.
type Store interface {
	ListPersons(ctx context.Context, userID string) ([]model.Person, error)
	CreatePerson(ctx context.Context, userID string, p *model.Person) error
	CreateDraft(ctx context.Context, userID string, d *model.GeneratedDraft) error
	ListVoicePatterns(ctx context.Context, userID string, categories ...string) ([]model.VoiceProfilePattern, error)
}

type Composer struct {
	Store    Store
	LLM      llm.Client
	Prompts  config.DraftPrompts
	MaxChars int
}

func NewComposer(s Store, llmClient llm.Client, prompts config.DraftPrompts, maxChars int) *Composer {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Composer{
		Store:    s,
		LLM:      llmClient,
		Prompts:  prompts,
		MaxChars: maxChars,
	}
}

// plan is the JSON shape the model returns.
type plan struct {
	Emails            []planEmail      `json:"emails"`
	HandwrittenNote   *planNote        `json:"handwritten_note"`
	Tasks             []planTask       `json:"tasks"`
	ThirdPartyActions []planThirdParty `json:"third_party_actions"`
	Connection        *planConnection  `json:"connection"`
}

type planEmail struct {
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type planNote struct {
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

type planTask struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type planThirdParty struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Action string `json:"action"`
}

type planConnection struct {
	SecondaryName string `json:"secondary_name"`
	Title         string `json:"title"`
	Content       string `json:"content"`
}

// Compose generates and persists drafts for the interaction. A model or
// parse failure is returned as an error for the orchestrator to absorb;
// individual invalid drafts are filtered silently per policy.
//
// Prompt slots: user = (contact name, known facts, role hints, voice
// preferences, interaction type, transcript).
func (c *Composer) Compose(ctx context.Context, userID string, in *model.Interaction, contact *model.Person) ([]model.GeneratedDraft, error) {
	if contact == nil {
		return nil, nil
	}
	text := strings.TrimSpace(in.Text())
	if len(text) < MinTranscriptChars {
		return nil, nil
	}

	persons, err := c.Store.ListPersons(ctx, userID)
	if err != nil {
		log.Printf("failed to list contacts for role matching (interaction %s): %v", in.ID, err)
	}

	roles := MatchRoles(text, persons, contact.ID)

	user := fmt.Sprintf(c.Prompts.User,
		contact.Name,
		factsBlock(contact),
		rolesBlock(roles),
		c.voiceBlock(ctx, userID),
		in.Type,
		common.Truncate(text, c.MaxChars))

	response, err := c.LLM.Generate(ctx, c.Prompts.System, user)
	if err != nil {
		return nil, fmt.Errorf("draft generation failed: %w", err)
	}

	p, err := common.ParseJSON[plan](response)
	if err != nil {
		return nil, fmt.Errorf("draft parse failed: %w", err)
	}

	drafts := c.buildDrafts(ctx, userID, in, contact, persons, &p)

	var created []model.GeneratedDraft
	for _, d := range drafts {
		if err := c.Store.CreateDraft(ctx, userID, &d); err != nil {
			log.Printf("failed to persist draft for contact %s (interaction %s): %v", contact.ID, in.ID, err)
			continue
		}
		created = append(created, d)
	}
	return created, nil
}

func (c *Composer) buildDrafts(ctx context.Context, userID string, in *model.Interaction, contact *model.Person, persons []model.Person, p *plan) []model.GeneratedDraft {
	now := time.Now().UTC()
	base := func(draftType, title, content string, meta model.DraftMetadata) model.GeneratedDraft {
		return model.GeneratedDraft{
			ID:            uuid.New().String(),
			ContactID:     contact.ID,
			InteractionID: in.ID,
			Type:          draftType,
			Title:         title,
			Content:       content,
			Status:        model.DraftPending,
			Metadata:      meta,
			CreatedAt:     now,
		}
	}

	var out []model.GeneratedDraft

	for _, e := range p.Emails {
		content := strings.TrimSpace(e.Content)
		if content == "" {
			continue
		}
		if ContainsUnfillablePlaceholder(content) {
			log.Printf("rejecting email draft with unfillable placeholder (interaction %s)", in.ID)
			continue
		}
		title := e.Title
		if title == "" {
			title = "Follow-up email to " + contact.Name
		}
		out = append(out, base(model.DraftEmail, title, content, model.DraftMetadata{Subject: e.Subject}))
	}

	if note := c.approvedNote(in, p.HandwrittenNote); note != nil {
		out = append(out, base(model.DraftHandwrittenNote,
			"Handwritten note for "+contact.Name, note.Content,
			model.DraftMetadata{NoteReason: note.Reason}))
	}

	for _, t := range p.Tasks {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		if ContainsUnfillablePlaceholder(content) {
			log.Printf("rejecting task draft with unfillable placeholder (interaction %s)", in.ID)
			continue
		}
		title := t.Title
		if title == "" {
			title = "Follow-up task"
		}
		out = append(out, base(model.DraftTask, title, content, model.DraftMetadata{}))
	}

	for _, tp := range p.ThirdPartyActions {
		// Validate before resolution so a rejected draft never creates a
		// contact as a side effect.
		action := strings.TrimSpace(tp.Action)
		if ContainsUnfillablePlaceholder(action) {
			log.Printf("rejecting third-party draft with unfillable placeholder (interaction %s)", in.ID)
			continue
		}
		res, err := c.resolveThirdParty(ctx, userID, tp.Name, persons, contact)
		if err != nil {
			log.Printf("third-party resolution failed for %q (interaction %s): %v", tp.Name, in.ID, err)
			continue
		}
		if res == nil {
			// The model echoed the primary contact back as a third party.
			continue
		}
		if action == "" {
			action = fmt.Sprintf("Follow up with %s", res.Contact.Name)
		}
		out = append(out, base(model.DraftTask,
			fmt.Sprintf("Reach out to %s", res.Contact.Name), action,
			model.DraftMetadata{
				ThirdParty:          true,
				ThirdPartyContactID: res.Contact.ID,
				NeedsManualLinking:  res.NeedsManualLinking,
			}))
		if res.Created {
			// Later mentions of the same name resolve to this record
			// instead of creating another.
			persons = append(persons, *res.Contact)
		}
	}

	// One connection draft per interaction, linked to the primary contact
	// so re-runs cannot double-record the same introduction.
	if conn := p.Connection; conn != nil && strings.TrimSpace(conn.Content) != "" {
		content := strings.TrimSpace(conn.Content)
		if ContainsUnfillablePlaceholder(content) {
			log.Printf("rejecting connection draft with unfillable placeholder (interaction %s)", in.ID)
		} else {
			meta := model.DraftMetadata{Connection: true}
			if secondary := findByName(conn.SecondaryName, persons, contact.ID); secondary != nil {
				meta.SecondaryContactID = secondary.ID
			}
			title := conn.Title
			if title == "" {
				title = fmt.Sprintf("Introduce %s and %s", contact.Name, conn.SecondaryName)
			}
			out = append(out, base(model.DraftEmail, title, content, meta))
		}
	}

	return out
}

// approvedNote applies the deterministic handwritten-note policy. The
// model's own signal is not trusted alone: content must be non-empty and
// the reason must be one of the three justifying reasons. A voicemail can
// only ever justify a note through an explicit request.
func (c *Composer) approvedNote(in *model.Interaction, note *planNote) *planNote {
	if note == nil || strings.TrimSpace(note.Content) == "" {
		return nil
	}
	switch note.Reason {
	case model.NoteReasonInPersonMeeting, model.NoteReasonLifeEvent, model.NoteReasonExplicitRequest:
	default:
		return nil
	}
	if in.Type == model.InteractionVoicemail && note.Reason != model.NoteReasonExplicitRequest {
		return nil
	}
	if ContainsUnfillablePlaceholder(note.Content) {
		log.Printf("rejecting note draft with unfillable placeholder (interaction %s)", in.ID)
		return nil
	}
	return &planNote{Content: strings.TrimSpace(note.Content), Reason: note.Reason}
}

// factsBlock renders known, real facts about the contact. The model is
// shown only verified data to discourage placeholder text.
func factsBlock(contact *model.Person) string {
	var b strings.Builder
	if contact.Profession != "" {
		fmt.Fprintf(&b, "Profession: %s\n", contact.Profession)
	}
	for _, f := range []struct{ label, value string }{
		{"Family", contact.Family},
		{"Occupation", contact.Occupation},
		{"Recreation", contact.Recreation},
		{"Dreams", contact.Dreams},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", f.label, f.value)
		}
	}
	if len(contact.Needs) > 0 {
		fmt.Fprintf(&b, "Needs: %s\n", strings.Join(contact.Needs, "; "))
	}
	if len(contact.Offers) > 0 {
		fmt.Fprintf(&b, "Offers: %s\n", strings.Join(contact.Offers, "; "))
	}
	if b.Len() == 0 {
		return "No verified facts on file. Do not invent any."
	}
	return b.String()
}

func rolesBlock(roles map[string]*model.Person) string {
	if len(roles) == 0 {
		return "None."
	}
	var b strings.Builder
	for role, p := range roles {
		fmt.Fprintf(&b, "- %q refers to %s", role, p.Name)
		if p.Occupation != "" {
			fmt.Fprintf(&b, " (%s)", p.Occupation)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// voiceBlock folds accumulated stylistic preferences into the prompt.
func (c *Composer) voiceBlock(ctx context.Context, userID string) string {
	patterns, err := c.Store.ListVoicePatterns(ctx, userID,
		model.VoiceGreeting, model.VoiceSignoff, model.VoiceExpression, model.VoiceTone,
		model.VoiceTonePreference, model.VoiceAvoidPattern,
		model.VoicePreferredPattern, model.VoiceLengthPreference)
	if err != nil {
		log.Printf("failed to load voice profile: %v", err)
		return "None."
	}
	if len(patterns) == 0 {
		return "None."
	}

	var b strings.Builder
	for _, p := range patterns {
		fmt.Fprintf(&b, "- [%s] %s (seen %dx)\n", p.Category, p.Value, p.Frequency)
	}
	return b.String()
}
