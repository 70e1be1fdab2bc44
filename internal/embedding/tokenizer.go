package embedding

import "strings"

// BERT special token ids.
const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs.
type SimpleTokenizer struct{}

// Tokenize lower-cases and splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 1 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range SplitWords(strings.ToLower(text)) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % vocabSize)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sepTokenID
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on white space and returns the non-empty words.
func SplitWords(text string) []string {
	return strings.Fields(text)
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
