// Package tokenizer counts tokens the way the configured model's
// encoding does, so window accounting tracks what the provider bills.
package tokenizer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tiktoken counts tokens with a BPE encoding resolved from the model
// name. It implements chat.Tokenizer.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// ForModel resolves the encoding for a model name. Unknown models fall
// back to the cl100k_base encoding, which covers current chat models
// closely enough for window accounting.
func ForModel(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Words is a whitespace-splitting fallback tokenizer for deployments
// that do not ship encoding data. It overcounts nothing but tracks
// real token counts only loosely.
type Words struct{}

func (Words) Count(text string) int {
	return len(strings.Fields(text))
}
