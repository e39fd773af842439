package llm

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/enriqueman/articlecrew/internal/logger"
)

const defaultEncoding = "cl100k_base"

// Tokenizer counts and trims text in tokens. The encoding is loaded lazily;
// if it cannot be loaded a character based estimate is used instead.
type Tokenizer struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{encoding: defaultEncoding}
}

func (t *Tokenizer) init() {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			logger.Op.WithFields(map[string]interface{}{
				"encoding": t.encoding,
				"error":    err.Error(),
			}).Warn("Tokenizer unavailable, falling back to estimates")
			return
		}
		t.enc = enc
	})
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	t.init()
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	return estimateTokens(text)
}

// TruncateFront keeps the last maxTokens tokens of text, dropping the
// beginning. Text already within budget is returned unchanged.
func (t *Tokenizer) TruncateFront(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if t.Count(text) <= maxTokens {
		return text
	}

	if t.enc != nil {
		tokens := t.enc.Encode(text, nil, nil)
		return strings.TrimLeft(t.enc.Decode(tokens[len(tokens)-maxTokens:]), " \n")
	}

	// ~4 characters per token for the estimate
	runes := []rune(text)
	keep := maxTokens * 4
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[len(runes)-keep:])
}

func estimateTokens(text string) int {
	n := (utf8.RuneCountInString(text) + 3) / 4
	if n == 0 {
		n = 1
	}
	return n
}
