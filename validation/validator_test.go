package validation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/docembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Accepts(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&core.DocumentInput{Content: "ok ok ok", Filename: "a.md"}))
	assert.NoError(t, v.Validate(&core.DocumentInput{Content: "no filename given here"}))
	assert.NoError(t, v.Validate(&core.DocumentInput{Content: "file without extension", Filename: "README"}))
}

func TestValidate_Rejects(t *testing.T) {
	v := New()

	tooManyKeys := make(core.Metadata)
	for i := range core.MaxMetadataKeys + 1 {
		tooManyKeys[fmt.Sprintf("k%d", i)] = "v"
	}

	tests := []struct {
		name string
		doc  *core.DocumentInput
		kind core.ValidationKind
		want error
	}{
		{"nil", nil, core.ValidationStructure, core.ErrNilDocument},
		{"empty", &core.DocumentInput{Content: ""}, core.ValidationContent, core.ErrEmptyContent},
		{"whitespace", &core.DocumentInput{Content: " \n\t "}, core.ValidationContent, core.ErrEmptyContent},
		{"two words", &core.DocumentInput{Content: "only two"}, core.ValidationContent, core.ErrTooFewWords},
		{"bad filename", &core.DocumentInput{Content: "one two three", Filename: "../etc/passwd"}, core.ValidationFilename, core.ErrInvalidFilename},
		{"long filename", &core.DocumentInput{Content: "one two three", Filename: strings.Repeat("a", 256) + ".txt"}, core.ValidationFilename, core.ErrFilenameTooLong},
		{"extension", &core.DocumentInput{Content: "one two three", Filename: "binary.exe"}, core.ValidationFilename, core.ErrUnsupportedExtension},
		{"metadata key", &core.DocumentInput{Content: "one two three", Metadata: core.Metadata{"bad key!": "x"}}, core.ValidationMetadata, core.ErrInvalidMetadataKey},
		{"metadata count", &core.DocumentInput{Content: "one two three", Metadata: tooManyKeys}, core.ValidationMetadata, core.ErrTooManyMetadataKeys},
		{"metadata size", &core.DocumentInput{Content: "one two three", Metadata: core.Metadata{"big": strings.Repeat("x", core.MaxMetadataBytes)}}, core.ValidationMetadata, core.ErrMetadataTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
			assert.ErrorIs(t, err, tt.want)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.kind, verr.Kind)
		})
	}
}

func TestValidate_SizeLimits(t *testing.T) {
	v := New(WithLimits(Limits{MinWords: 1, MaxBytes: 20, MaxTokens: 100, MaxFilenameLength: 255}))
	err := v.Validate(&core.DocumentInput{Content: strings.Repeat("word ", 10)})
	assert.ErrorIs(t, err, core.ErrDocumentTooLarge)

	v = New(WithLimits(Limits{MinWords: 1, MaxBytes: 1000, MaxTokens: 5, MaxFilenameLength: 255}))
	err = v.Validate(&core.DocumentInput{Content: strings.Repeat("word ", 10)})
	assert.ErrorIs(t, err, core.ErrTooManyTokens)
}

func TestValidate_OrderContentBeforeFilename(t *testing.T) {
	err := New().Validate(&core.DocumentInput{Content: "", Filename: "x.exe"})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestValidate_InvalidUTF8OnlyWarns(t *testing.T) {
	v := New()
	doc := &core.DocumentInput{Content: "caf\xe9 menu with several words here", Filename: "menu.txt"}
	assert.NoError(t, v.Validate(doc))
	assert.True(t, v.IsValid(doc))

	warnings := CheckQuality("caf\xe9 menu")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "invalid UTF-8")
}

func TestValidationErrorsAndIsValid(t *testing.T) {
	v := New()
	good := &core.DocumentInput{Content: "three whole words"}
	bad := &core.DocumentInput{Content: ""}

	assert.True(t, v.IsValid(good))
	assert.Nil(t, v.ValidationErrors(good))

	assert.False(t, v.IsValid(bad))
	errs := v.ValidationErrors(bad)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], core.ErrEmptyContent)
}

func TestValidateBatch_PartialFailure(t *testing.T) {
	v := New()
	docs := []*core.DocumentInput{
		{Content: "first valid document"},
		{Content: ""},
		{Content: "second valid document", Filename: "b.txt"},
		nil,
	}

	result := v.ValidateBatch(docs)
	require.Len(t, result.Valid, 2)
	require.Len(t, result.Invalid, 2)

	assert.Equal(t, 1, result.Invalid[0].Index)
	assert.ErrorIs(t, result.Invalid[0].Err, core.ErrEmptyContent)
	assert.Equal(t, 3, result.Invalid[1].Index)
	assert.ErrorIs(t, result.Invalid[1].Err, core.ErrNilDocument)
}

func TestCheckQuality(t *testing.T) {
	assert.Empty(t, CheckQuality("A perfectly ordinary paragraph of text."))

	repeated := strings.Repeat("same line\n", 10)
	warnings := CheckQuality(repeated)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "repeated")

	run := "start " + strings.Repeat("=", 60) + " end"
	warnings = CheckQuality(run)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "run of 60")

	garbled := "text " + strings.Repeat("�", 5) + strings.Repeat(" ok", 20)
	warnings = CheckQuality(garbled)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "replacement")
}

func TestValidate_QualityWarningsDoNotFail(t *testing.T) {
	doc := &core.DocumentInput{Content: strings.Repeat("same line here\n", 20)}
	assert.NoError(t, New().Validate(doc))
}
