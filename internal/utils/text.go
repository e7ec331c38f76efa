package utils

import (
	"regexp"
	"strings"
)

var (
	timeTagPattern = regexp.MustCompile(`\[time: .*?\]\s*`)
	parensPattern  = regexp.MustCompile(`[（(][^)）]*[)）]`)
	mentionPattern = regexp.MustCompile(`<@!?\d+>`)

	chinesePattern = regexp.MustCompile(`[\x{4E00}-\x{9FFF}\x{3400}-\x{4DBF}\x{F900}-\x{FAFF}]`)
	letterPattern  = regexp.MustCompile(`[\x{4E00}-\x{9FFF}\x{3400}-\x{4DBF}\x{F900}-\x{FAFF}\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`)

	sentenceEnd = regexp.MustCompile(`[。！？…]`)
)

// RemoveTimeTags strips `[time: ...]` tags injected by the chat history.
func RemoveTimeTags(text string) string {
	return timeTagPattern.ReplaceAllString(text, "")
}

// RemoveMentions strips Discord user mentions like <@123456789>.
func RemoveMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// RemoveParentheses strips anything inside parentheses, including the
// parentheses themselves.
func RemoveParentheses(text string) string {
	return strings.TrimSpace(parensPattern.ReplaceAllString(text, ""))
}

// splitSentences splits after each Japanese sentence terminator, keeping the
// terminator with its sentence.
func splitSentences(text string) []string {
	var out []string
	rest := text
	for {
		loc := sentenceEnd.FindStringIndex(rest)
		if loc == nil {
			break
		}
		out = append(out, rest[:loc[1]])
		rest = rest[loc[1]:]
	}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}

// RemoveChineseSentences drops sentences that are almost entirely Chinese.
// A sentence is dropped when the ratio of Chinese characters to CJK letters
// exceeds threshold; sentences with no CJK letters are kept as-is.
func RemoveChineseSentences(text string, threshold float64) string {
	var b strings.Builder
	for _, s := range splitSentences(text) {
		letters := letterPattern.FindAllString(s, -1)
		if len(letters) == 0 {
			b.WriteString(strings.TrimSpace(s))
			continue
		}
		chinese := chinesePattern.FindAllString(s, -1)
		if float64(len(chinese))/float64(len(letters)) > threshold {
			continue
		}
		b.WriteString(strings.TrimSpace(s))
	}
	return b.String()
}

// ExtractSpeakableText cleans an answer before it is handed to speech
// synthesis: time tags, mentions and parentheticals are removed, and
// near-pure Chinese sentences are dropped (the synthesis voices are
// Japanese).
func ExtractSpeakableText(text string) string {
	cleaned := RemoveTimeTags(text)
	cleaned = RemoveMentions(cleaned)
	cleaned = RemoveParentheses(cleaned)
	return RemoveChineseSentences(cleaned, 0.95)
}
