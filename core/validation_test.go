package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateMetadata(t *testing.T) {
	tooMany := Metadata{}
	for i := 0; i <= MaxMetadataKeys; i++ {
		tooMany["k"+strings.Repeat("x", i%10)+string(rune('a'+i%26))+string(rune('a'+i/26))] = "v"
	}

	tests := []struct {
		name    string
		meta    Metadata
		wantErr error
	}{
		{
			name:    "nil metadata",
			meta:    nil,
			wantErr: nil,
		},
		{
			name:    "valid metadata",
			meta:    Metadata{"source": "upload", "user_id": "u-1"},
			wantErr: nil,
		},
		{
			name:    "empty key",
			meta:    Metadata{"": "v"},
			wantErr: ErrInvalidMetadataKey,
		},
		{
			name:    "key too long",
			meta:    Metadata{strings.Repeat("k", MaxMetadataKeyLength+1): "v"},
			wantErr: ErrInvalidMetadataKey,
		},
		{
			name:    "key with spaces",
			meta:    Metadata{"bad key": "v"},
			wantErr: ErrInvalidMetadataKey,
		},
		{
			name:    "too many keys",
			meta:    tooMany,
			wantErr: ErrTooManyMetadataKeys,
		},
		{
			name:    "serialized size too large",
			meta:    Metadata{"blob": strings.Repeat("x", MaxMetadataBytes)},
			wantErr: ErrMetadataTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.meta)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMetadata() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMetadata() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInsight(t *testing.T) {
	tests := []struct {
		name    string
		insight *ExtractedInsight
		wantErr error
	}{
		{
			name:    "valid insight",
			insight: &ExtractedInsight{Content: "Users want faster exports", ConfidenceScore: 0.8},
			wantErr: nil,
		},
		{
			name:    "nil insight",
			insight: nil,
			wantErr: ErrInvalidInsight,
		},
		{
			name:    "empty content",
			insight: &ExtractedInsight{Content: "  ", ConfidenceScore: 0.8},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "confidence above one",
			insight: &ExtractedInsight{Content: "x", ConfidenceScore: 1.2},
			wantErr: ErrConfidenceOutOfRange,
		},
		{
			name:    "negative confidence",
			insight: &ExtractedInsight{Content: "x", ConfidenceScore: -0.1},
			wantErr: ErrConfidenceOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInsight(tt.insight)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateInsight() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateInsight() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	err := NewValidationError(ValidationContent, "a.md", ErrEmptyContent)

	if !errors.Is(err, ErrValidation) {
		t.Errorf("ValidationError should match ErrValidation")
	}
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ValidationError should match its cause")
	}

	var ve *ValidationError
	if !errors.As(error(err), &ve) || ve.Kind != ValidationContent {
		t.Errorf("errors.As() failed to recover ValidationError")
	}
	if !strings.Contains(err.Error(), "a.md") {
		t.Errorf("Error() = %q, want filename", err.Error())
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Op: "insert insights", DocumentID: "doc-1", Rows: 4, Err: cause}

	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Errorf("StorageError should unwrap to ErrStorage and cause")
	}
	if !err.Retryable() {
		t.Errorf("StorageError should be retryable")
	}
	if !strings.Contains(err.Error(), "doc-1") || !strings.Contains(err.Error(), "4 rows") {
		t.Errorf("Error() = %q, want document id and row count", err.Error())
	}
}

func TestChunkingError(t *testing.T) {
	err := &ChunkingError{Filename: "a.txt", ContentLength: 0, Err: ErrEmptyContent}
	if !errors.Is(err, ErrChunking) || !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ChunkingError should unwrap to ErrChunking and cause")
	}
}
