// Package prompts builds the text sent to generative backends. Only the
// inputs each builder accepts are load-bearing; wording may change freely.
package prompts

import (
	"fmt"
	"strings"
)

const (
	OutlineSystem = "You are an SEO editor. Produce detailed, logically ordered article outlines in markdown."
	ArticleSystem = "You are an expert copywriter. Write informative, well-structured SEO articles that include keywords naturally."
	ReviseSystem  = "You are an editor. Adjust the length of the article you are given while keeping its structure, headings and tone."
)

// Outline builds the outline prompt.
func Outline(topic, thesis string, keywords, questions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a markdown outline for an article.\n\nTopic: %s\nAuthor's thesis: %s\n", topic, thesis)
	fmt.Fprintf(&b, "Keywords to include: %s\n", strings.Join(head(keywords, 10), ", "))
	if len(questions) > 0 {
		b.WriteString("\nQuestions readers ask:\n")
		for _, q := range head(questions, 5) {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	b.WriteString("\nUse H1, H2 and H3 headings. Include an introduction, a main part with subsections and a conclusion. Return only the outline.")
	return b.String()
}

// Article builds the full-text prompt.
func Article(topic, thesis, outline string, keywords []string, styleExamples string, targetLength int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the full article following this outline.\n\nTopic: %s\nAuthor's thesis: %s\n\nOutline:\n%s\n\n", topic, thesis, outline)
	fmt.Fprintf(&b, "Keywords to include: %s\n", strings.Join(head(keywords, 10), ", "))
	if styleExamples != "" {
		fmt.Fprintf(&b, "\nMatch the tone and phrasing of these examples:\n%s\n", styleExamples)
	}
	fmt.Fprintf(&b, "\nLength: about %d characters. Use markdown with lists, bold for conclusions and italics for terms. No tables.", targetLength)
	return b.String()
}

// Expand asks for a longer version of text.
func Expand(text string, current, target int) string {
	return fmt.Sprintf("The article below is %d characters long. Expand it to about %d characters by elaborating on existing sections. Do not add or rename headings. Return only the article.\n\n%s", current, target, text)
}

// Shorten asks for a shorter version of text.
func Shorten(text string, current, target int) string {
	return fmt.Sprintf("The article below is %d characters long. Shorten it to about %d characters by tightening the prose. Keep every heading. Return only the article.\n\n%s", current, target, text)
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
