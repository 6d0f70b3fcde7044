package voice

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

// MinHarvestChars gates the side extraction: short transcripts do not
// carry enough of the user's own speech to be worth a call.
const MinHarvestChars = 500

type HarvestStore interface {
	UpsertVoicePattern(ctx context.Context, userID string, p *model.VoiceProfilePattern) error
}

// Harvester pulls greeting/signoff/expression/tone patterns out of the
// user's side of a transcript.
type Harvester struct {
	Store    HarvestStore
	LLM      llm.Client
	Prompts  config.VoicePrompts
	MaxChars int
}

func NewHarvester(s HarvestStore, llmClient llm.Client, prompts config.VoicePrompts, maxChars int) *Harvester {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Harvester{
		Store:    s,
		LLM:      llmClient,
		Prompts:  prompts,
		MaxChars: maxChars,
	}
}

type harvestedPattern struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

type harvested struct {
	Patterns []harvestedPattern `json:"patterns"`
}

// Harvest is best-effort and non-blocking: failures log and return zero.
//
// Prompt slots: user = (transcript).
func (h *Harvester) Harvest(ctx context.Context, userID string, in *model.Interaction) int {
	text := strings.TrimSpace(in.Transcript)
	if len(text) < MinHarvestChars {
		return 0
	}

	user := fmt.Sprintf(h.Prompts.User, common.Truncate(text, h.MaxChars))
	response, err := h.LLM.Generate(ctx, h.Prompts.System, user)
	if err != nil {
		log.Printf("voice harvest failed for interaction %s: %v", in.ID, err)
		return 0
	}

	parsed, err := common.ParseJSON[harvested](response)
	if err != nil {
		log.Printf("voice harvest parse failed for interaction %s: %v", in.ID, err)
		return 0
	}

	count := 0
	for _, p := range parsed.Patterns {
		if !harvestCategory(p.Category) || strings.TrimSpace(p.Value) == "" {
			continue
		}
		pattern := &model.VoiceProfilePattern{
			ID:        uuid.New().String(),
			Category:  p.Category,
			Value:     strings.TrimSpace(p.Value),
			Source:    "interaction:" + in.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := h.Store.UpsertVoicePattern(ctx, userID, pattern); err != nil {
			log.Printf("failed to store harvested pattern: %v", err)
			continue
		}
		count++
	}
	return count
}

func harvestCategory(c string) bool {
	switch c {
	case model.VoiceGreeting, model.VoiceSignoff, model.VoiceExpression, model.VoiceTone:
		return true
	}
	return false
}
