package chunking

import (
	"fmt"

	"github.com/poiesic/docembed/core"
)

// Options controls chunk sizing.
type Options struct {
	// MaxTokens is the upper bound on a chunk's estimated tokens. Default: 1000
	MaxTokens int `toml:"max_tokens"`

	// OverlapTokens is carried from the end of one chunk into the next.
	// Must be less than MaxTokens. Default: 200
	OverlapTokens int `toml:"overlap_tokens"`

	// MinTokens is the smallest chunk a sentence split may produce. The final
	// chunk of a document may be shorter. Default: 50
	MinTokens int `toml:"min_tokens"`

	// DisableSentenceSplits forces fixed-size cuts at MaxTokens.
	DisableSentenceSplits bool `toml:"disable_sentence_splits"`
}

// DefaultOptions returns the default chunk sizing.
func DefaultOptions() Options {
	return Options{
		MaxTokens:     1000,
		OverlapTokens: 200,
		MinTokens:     50,
	}
}

// Validate checks that the options are consistent.
func (o Options) Validate() error {
	if o.MaxTokens <= 0 {
		return fmt.Errorf("%w: MaxTokens must be greater than 0", core.ErrInvalidChunkOptions)
	}
	if o.OverlapTokens < 0 || o.OverlapTokens >= o.MaxTokens {
		return fmt.Errorf("%w: OverlapTokens must be in [0, %d)", core.ErrInvalidChunkOptions, o.MaxTokens)
	}
	if o.MinTokens < 0 || o.MinTokens > o.MaxTokens {
		return fmt.Errorf("%w: MinTokens must be in [0, %d]", core.ErrInvalidChunkOptions, o.MaxTokens)
	}
	return nil
}

func (o Options) maxChars() int     { return o.MaxTokens * core.CharsPerToken }
func (o Options) overlapChars() int { return o.OverlapTokens * core.CharsPerToken }
func (o Options) minChars() int     { return o.MinTokens * core.CharsPerToken }
