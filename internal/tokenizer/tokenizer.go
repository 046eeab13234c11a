package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec encodes text into model tokens and decodes tokens back into text.
// The context assembler uses it for budget enforcement.
type Codec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenCodec wraps a tiktoken BPE encoding.
type tiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewCL100K returns a Codec backed by the cl100k_base encoding, which is the
// tokenizer used by the embedding and completion models this service targets.
func NewCL100K() (Codec, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &tiktokenCodec{enc: enc}, nil
}

func (c *tiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c *tiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}
