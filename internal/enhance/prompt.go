package enhance

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/FranksOps/quill/internal/extract"
)

const (
	// ReferencePrefix is how much of each reference body goes into the prompt.
	ReferencePrefix = 2000
	minTargetLength = 1000
)

// BuildContext renders the reference block of the prompt: per reference its
// title, a truncated body prefix and its URL.
func BuildContext(refs []*extract.Content) string {
	var b strings.Builder
	for i, ref := range refs {
		fmt.Fprintf(&b, "\n--- Top Ranking Article %d ---\n", i+1)
		fmt.Fprintf(&b, "Title: %s\n", ref.Title)
		fmt.Fprintf(&b, "Content: %s...\n", truncate(ref.Body, ReferencePrefix))
		fmt.Fprintf(&b, "URL: %s\n", ref.URL)
	}
	return b.String()
}

// TargetLength is the character count the rewrite should aim for.
func TargetLength(original string) int {
	target := utf8.RuneCountInString(original) * 3 / 2
	if target < minTargetLength {
		return minTargetLength
	}
	return target
}

// BuildPrompt assembles the rewrite instruction.
func BuildPrompt(title, content, context string) string {
	return fmt.Sprintf(`You are an expert content writer tasked with enhancing a blog article.

ORIGINAL ARTICLE:
Title: %s
Content: %s

TOP-RANKING ARTICLES FOR REFERENCE:
%s

TASK:
Enhance the original article by:
1. Improving the writing quality, clarity, and readability
2. Incorporating insights and best practices from the top-ranking articles
3. Maintaining the original article's core message and intent
4. Using a professional, engaging tone
5. Ensuring proper formatting with clear paragraphs
6. Adding relevant examples or explanations where appropriate
7. Making it more comprehensive and valuable to readers

IMPORTANT GUIDELINES:
- Do NOT plagiarize from the reference articles
- Use the reference articles only for inspiration and to understand what makes content rank well
- Keep the enhanced content focused on the original topic
- Aim for approximately %d characters
- Write in a clear, professional style
- Use markdown formatting for better readability

OUTPUT:
Provide ONLY the enhanced article content without any preamble or explanation.`,
		title, content, context, TargetLength(content))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
