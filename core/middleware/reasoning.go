package middleware

import (
	"context"
	"strings"

	"github.com/manifold-ai/manifold/core/ai"
)

// ExtractReasoning pulls <tag>…</tag> spans out of text content after a
// generate call returns. The text left around the spans is joined with a
// newline into a single text part, followed by the extracted spans as
// reasoning parts. Models that inline their chain of thought in the text
// (DeepSeek R1 distillations and similar) become indistinguishable from
// models with native reasoning support.
//
// An opening tag without a matching close captures the rest of the text, so
// length-truncated responses still surface their partial reasoning.
func ExtractReasoning(tag string) Middleware {
	openTag := "<" + tag + ">"
	closeTag := "</" + tag + ">"

	return Middleware{
		WrapGenerate: func(next GenerateFunc, _ ai.LanguageModel) GenerateFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
				response, err := next(ctx, request)
				if err != nil {
					return nil, err
				}

				var content []ai.Part
				for _, part := range response.Content {
					if part.Kind != ai.PartText || !strings.Contains(part.Text, openTag) {
						content = append(content, part)
						continue
					}
					content = append(content, splitReasoning(part.Text, openTag, closeTag)...)
				}
				response.Content = content

				return response, nil
			}
		},
	}
}

func splitReasoning(text, openTag, closeTag string) []ai.Part {
	var texts []string
	var reasoning []ai.Part

	appendText := func(s string) {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}

	for {
		open := strings.Index(text, openTag)
		if open < 0 {
			appendText(text)
			break
		}
		appendText(text[:open])

		rest := text[open+len(openTag):]
		closing := strings.Index(rest, closeTag)
		if closing < 0 {
			reasoning = append(reasoning, ai.Reasoning(strings.TrimSpace(rest)))
			break
		}
		reasoning = append(reasoning, ai.Reasoning(strings.TrimSpace(rest[:closing])))
		text = rest[closing+len(closeTag):]
	}

	var parts []ai.Part
	if len(texts) > 0 {
		parts = append(parts, ai.Text(strings.Join(texts, "\n")))
	}
	return append(parts, reasoning...)
}
