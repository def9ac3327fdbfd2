package forge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrectWebURLDuplicatedPrefix(t *testing.T) {
	raw := "https://h/ahttps://h/a/b/-/merge_requests/3"
	fixed, correction := CorrectWebURL(raw)
	assert.True(t, correction.Corrected)
	assert.False(t, correction.Ambiguous)
	assert.Equal(t, "https://h/a/b/-/merge_requests/3", fixed)
}

func TestCorrectWebURLDuplicatedPrefixWithSpace(t *testing.T) {
	raw := "https://h/a https://h/a/b/-/merge_requests/9"
	fixed, correction := CorrectWebURL(raw)
	assert.True(t, correction.Corrected)
	assert.Equal(t, "https://h/a/b/-/merge_requests/9", fixed)
}

func TestCorrectWebURLSingleSchemeUnchanged(t *testing.T) {
	raw := "https://gitlab.example.com/group/app/-/merge_requests/12"
	fixed, correction := CorrectWebURL(raw)
	assert.False(t, correction.Corrected)
	assert.Equal(t, raw, fixed)
}

func TestCorrectWebURLTripleSchemeFlaggedNotGuessed(t *testing.T) {
	raw := "https://h/ahttps://h/bhttps://h/a/b/-/merge_requests/3"
	fixed, correction := CorrectWebURL(raw)
	assert.False(t, correction.Corrected)
	assert.True(t, correction.Ambiguous)
	assert.Equal(t, raw, fixed)
}

func TestCorrectWebURLHostMismatchUnchanged(t *testing.T) {
	raw := "https://other/ahttps://h/a/b/-/merge_requests/3"
	fixed, correction := CorrectWebURL(raw)
	assert.False(t, correction.Corrected)
	assert.Equal(t, raw, fixed)
}

func TestCorrectWebURLNoScheme(t *testing.T) {
	fixed, correction := CorrectWebURL("not a url")
	assert.False(t, correction.Corrected)
	assert.Equal(t, "not a url", fixed)
}
