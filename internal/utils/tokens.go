package utils

// Token estimates use the rough 1 token ~= 4 characters heuristic; they only
// need to keep prompts inside a model's context window.

// CountTokens estimates the number of tokens in text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly fit within limit tokens. The cut
// prefers the last newline so report sections stay whole.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	cut := charLimit
	for i := charLimit - 1; i > charLimit/2; i-- {
		if runes[i] == '\n' {
			cut = i + 1
			break
		}
	}
	return string(runes[:cut])
}
