package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/model"
)

// Pace and budget constants for spoken delivery.
const (
	baseWPM             = 150
	targetSpokenMinutes = 4.0
	// Reserve a margin of the spoken-duration budget for pauses and
	// delivery effects.
	speechMargin  = 0.92
	minStoryWords = 300

	minPredictTokens = 256
	maxPredictTokens = 1024
)

// flavorWPM maps each narrative flavor to its narration pace.
var flavorWPM = map[model.StoryFlavor]float64{
	model.FlavorFairyTale:      0.95 * baseWPM,
	model.FlavorThriller:       0.90 * baseWPM,
	model.FlavorRomance:        0.95 * baseWPM,
	model.FlavorScienceFiction: 0.98 * baseWPM,
}

// VisionTextEngine is the structured-call surface of the vision/text models.
type VisionTextEngine interface {
	ClassifyContent(ctx context.Context, image []byte, system, user string) (*model.ContentVerdict, error)
	DescribeImage(ctx context.Context, image []byte, system, user string) (*model.ImageInsights, error)
	ComposeStory(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// GeneratedStory is the generation stage output.
type GeneratedStory struct {
	Title string
	Text  string
}

// Generator produces a titled story from an image and a generation request,
// gated by content moderation when mature content is not enabled.
type Generator struct {
	engine VisionTextEngine
}

func NewGenerator(engine VisionTextEngine) *Generator {
	return &Generator{engine: engine}
}

func (g *Generator) Generate(ctx context.Context, req *model.StoryGenerationRequest, imageBytes []byte) (*GeneratedStory, error) {
	normalized, err := normalizeImage(imageBytes)
	if err != nil {
		return nil, &model.EngineError{Stage: "image preprocessing", Err: err}
	}

	if !req.MatureContentEnabled {
		if err := g.checkRestrictedContent(ctx, normalized, req); err != nil {
			return nil, err
		}
	}

	insights, err := g.engine.DescribeImage(ctx, normalized, insightsSystemPrompt, insightsUserPrompt(req))
	if err != nil {
		return nil, &model.EngineError{Stage: "image insights", Err: err}
	}

	log.Info().Str("title", insights.Title).Str("setting", insights.Setting).Msg("Got image insights")

	text, err := g.composeStory(ctx, req, insights)
	if err != nil {
		return nil, err
	}

	return &GeneratedStory{Title: insights.Title, Text: text}, nil
}

func (g *Generator) checkRestrictedContent(ctx context.Context, image []byte, req *model.StoryGenerationRequest) error {
	log.Info().Msg("Performing content moderation check")

	verdict, err := g.engine.ClassifyContent(ctx, image, moderationSystemPrompt, moderationUserPrompt(req))
	if err != nil {
		return &model.EngineError{Stage: "content moderation", Err: err}
	}

	if verdict.IsRestricted {
		return &model.RestrictedContentError{Summary: verdict.Summary}
	}
	return nil
}

func (g *Generator) composeStory(ctx context.Context, req *model.StoryGenerationRequest, insights *model.ImageInsights) (string, error) {
	maxWords := maxWordsForFlavor(req.Flavor)
	tokens := predictTokens(maxWords)

	text, err := g.engine.ComposeStory(ctx, storySystemPrompt(req.MatureContentEnabled), storyUserPrompt(req, insights, maxWords), tokens)
	if err != nil {
		return "", &model.EngineError{Stage: "story generation", Err: err}
	}
	return text, nil
}

// maxWordsForFlavor derives the word ceiling from the flavor's narration
// pace and the target spoken duration. Word bounds are enforced by
// instruction only; an engine that overshoots is accepted as-is.
func maxWordsForFlavor(flavor model.StoryFlavor) int {
	return int(flavorWPM[flavor] * targetSpokenMinutes * speechMargin)
}

func predictTokens(maxWords int) int {
	tokens := int(float64(maxWords) * 1.3)
	if tokens < minPredictTokens {
		return minPredictTokens
	}
	if tokens > maxPredictTokens {
		return maxPredictTokens
	}
	return tokens
}

const moderationSystemPrompt = "You are a concise content safety classifier." +
	" Block explicit sexual content (nudity/acts/exploitation), graphic violence/gore," +
	" sexualization of minors, or hateful/terrorist propaganda." +
	" Allow 16+ content: mild romance/affection, non-graphic injuries, sports, everyday scenes." +
	" Decisions must be grounded strictly in the visible image and the user's extra text." +
	" Output a compact JSON object only."

func moderationUserPrompt(req *model.StoryGenerationRequest) string {
	return "Classify if the content should be restricted for under-18 viewers." +
		" Consider the image and this extra text (may be empty):\n\n" +
		fmt.Sprintf("Extra instructions from the user: ```%s```\n\n", req.AdditionalContext) +
		" Keep summary one sentence, grounded in visible cues."
}

const insightsSystemPrompt = "You are a meticulous vision assistant extracting grounded story-building cues." +
	" Be literal and faithful to the image; do not invent entities or text." +
	" Prefer short noun phrases. Avoid duplication across lists." +
	" Output only JSON that matches the schema precisely."

func insightsUserPrompt(req *model.StoryGenerationRequest) string {
	return "Extract comprehensive grounded insights for story writing from the image." +
		" Fill the schema thoroughly." +
		" Use short, concrete phrases. Keep punctuation minimal." +
		" Consider the user's extra instructions for context: " +
		fmt.Sprintf("```%s```", req.AdditionalContext)
}

func storySystemPrompt(matureContentEnabled bool) string {
	var contentGuideline string
	if matureContentEnabled {
		contentGuideline = "Mature content is enabled: mature themes are permitted. Do NOT depict minors, " +
			"illegal or non-consensual acts. Avoid pornographic detail; be tasteful."
	} else {
		contentGuideline = "Mature content is NOT enabled: content must be suitable for under-18. 16+ content is allowed. " +
			"No explicit sexual content; no graphic violence/gore."
	}

	return "You are a seasoned storyteller. Write vivid, coherent prose tailored to the requested flavor." +
		" Keep language accessible and engaging. " +
		" Use natural rhythm for spoken delivery: short to medium sentences, varied cadence." +
		" Format the story with clear paragraph breaks (one blank line between paragraphs)." +
		" For major shifts in scene or time, insert a line with '---' as a break." +
		contentGuideline +
		" Output only the final story text; do not include a title or any commentary."
}

func storyUserPrompt(req *model.StoryGenerationRequest, insights *model.ImageInsights, maxWords int) string {
	insightsJSON, _ := json.MarshalIndent(insights, "", "  ")

	return fmt.Sprintf("Write a story. The story text should be medium-large: at least %d words, but less than the %d words.\n", minStoryWords, maxWords) +
		fmt.Sprintf("Flavor: %s.\n\n", req.Flavor) +
		"Use the following details as inspiration for your story, but feel free to creatively expand," +
		" add new elements, or imagine additional context to make the story more engaging and vivid:\n" +
		string(insightsJSON) + "\n\n" +
		fmt.Sprintf("Additional instructions for the story: %s", req.AdditionalContext)
}
