// Package prompts holds the fixed prompt fragments of the engine and
// renders them with runtime values.
package prompts

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// RenderExpertSystem renders the grounded expert system prompt: persona
// declaration, knowledge block, output-schema instructions, behavioral
// limits and, when present, the persona's self-description.
func RenderExpertSystem(displayName, knowledge, description string) (string, error) {
	return render("templates/expert_system.md", struct {
		DisplayName string
		Knowledge   string
		Description string
	}{
		DisplayName: displayName,
		Knowledge:   knowledge,
		Description: description,
	})
}

// RenderCondenser renders the condenser instruction embedding the
// serialized chat history and the latest human input.
func RenderCondenser(chatHistory, question string) (string, error) {
	return render("templates/condenser.md", struct {
		ChatHistory string
		Question    string
	}{
		ChatHistory: chatHistory,
		Question:    question,
	})
}

// RenderTranslator renders the translator instruction for a target
// ISO-639-1 language code.
func RenderTranslator(targetLanguage string) (string, error) {
	return render("templates/translator.md", struct {
		TargetLanguage string
	}{
		TargetLanguage: targetLanguage,
	})
}

func render(name string, data any) (string, error) {
	content, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
