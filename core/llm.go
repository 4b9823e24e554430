/*
Package core provides LLM integration and response processing for the Milo
agent service.

This file implements a per-run wrapper around the shared language model that:
- applies the configured sampling temperature to every call
- strips reasoning tags some models leak into their answers
- reports each model response to the run's chunk stream as agent output
*/
package core

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
)

var (
	thinkTagRegex     = regexp.MustCompile(`(?is)<think>.*?</think>`)
	openThinkRegex    = regexp.MustCompile(`(?is)<think>.*`)
	reasoningTagRegex = regexp.MustCompile(`(?is)<reasoning>.*?</reasoning>`)
	multiNewlineRegex = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// RunLLM wraps the shared model for the duration of one agent run. Every
// response becomes an agent chunk on the run's stream.
type RunLLM struct {
	wrappedLLM llms.Model
	config     *Config
	logger     *logrus.Entry
	emit       func(Chunk)
}

// NewRunLLM binds llm to a run. emit may be nil when no stream is attached.
func NewRunLLM(llm llms.Model, config *Config, logger *logrus.Entry, emit func(Chunk)) *RunLLM {
	return &RunLLM{
		wrappedLLM: llm,
		config:     config,
		logger:     logger,
		emit:       emit,
	}
}

// truncateForLog cuts text to at most limit bytes without splitting a rune.
func truncateForLog(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for cut := limit; cut > 0; cut-- {
		if utf8.RuneStart(text[cut]) {
			return text[:cut] + "..."
		}
	}
	return "..."
}

// cleanResponse removes reasoning tags and collapses the blank lines they
// leave behind. Tool-call responses with no text stay empty.
func cleanResponse(response string) string {
	cleaned := thinkTagRegex.ReplaceAllString(response, "")
	cleaned = openThinkRegex.ReplaceAllString(cleaned, "")
	cleaned = reasoningTagRegex.ReplaceAllString(cleaned, "")
	if cleaned == response {
		return response
	}
	cleaned = strings.TrimSpace(cleaned)
	return multiNewlineRegex.ReplaceAllString(cleaned, "\n\n")
}

// GenerateContent implements llms.Model.
func (w *RunLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	options = append([]llms.CallOption{llms.WithTemperature(w.config.Temperature)}, options...)

	response, err := w.wrappedLLM.GenerateContent(ctx, messages, options...)
	if err != nil {
		return response, err
	}
	if response == nil || len(response.Choices) == 0 {
		return response, nil
	}

	out := Chunk{Source: SourceAgent, Messages: make([]Message, 0, len(response.Choices))}
	for i := range response.Choices {
		original := response.Choices[i].Content
		cleaned := cleanResponse(original)
		response.Choices[i].Content = cleaned

		if len(original) != len(cleaned) {
			w.logger.WithFields(logrus.Fields{
				"originalLength":  len(original),
				"cleanedLength":   len(cleaned),
				"originalPreview": truncateForLog(original, w.config.LogTruncateLength),
			}).Debug("Cleaned LLM response content")
		}
		out.Messages = append(out.Messages, Message{Content: cleaned})
	}

	w.logger.WithFields(logrus.Fields{
		"toolCalls": len(response.Choices[0].ToolCalls),
		"response":  truncateForLog(response.Choices[0].Content, w.config.LogTruncateLength),
	}).Debug("LLM response received")

	if w.emit != nil {
		w.emit(out)
	}
	return response, nil
}

// Call implements the single prompt form of llms.Model on top of
// GenerateContent so it is cleaned and reported the same way.
func (w *RunLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, w, prompt, options...)
}

var _ llms.Model = (*RunLLM)(nil)
