package core

import "unicode/utf8"

// CharsPerToken is the fixed ratio used to approximate token counts.
const CharsPerToken = 4

// EstimateTokens approximates the token count of text as ceil(chars/4).
// It is deterministic and cheap; it is not a billing-accurate tokenizer.
func EstimateTokens(text string) int {
	return TokensForChars(utf8.RuneCountInString(text))
}

// TokensForChars converts a character count into approximate tokens.
func TokensForChars(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}
