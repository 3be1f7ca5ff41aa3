package schema

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surveyDoc = `<form>
	<input type="text" name="email" maxlength="40" required>
	<input type="number" name="age" min="0" max="130">
	<div>
		<input type="checkbox" name="interests" value="art">
		<input type="checkbox" name="interests" value="math">
		<input type="checkbox" name="interests" value="music">
	</div>
</form>`

func compile(t *testing.T) *Validator {
	t.Helper()
	s, err := Derive([]byte(surveyDoc), "form")
	require.NoError(t, err)
	v, err := Compile(s)
	require.NoError(t, err)
	return v
}

func TestValidateAcceptsWellFormedSubmission(t *testing.T) {
	v := compile(t)

	payload, err := v.Validate(url.Values{
		"email":     {"someone@example.org"},
		"age":       {"42"},
		"interests": {"art", "music"},
	})
	require.NoError(t, err)

	// form-encoded strings are coerced where the schema wants integers
	assert.Equal(t, 42, payload["age"])
	assert.Equal(t, []any{"art", "music"}, payload["interests"])
}

func TestValidateSingleCheckboxScalar(t *testing.T) {
	v := compile(t)

	payload, err := v.Validate(url.Values{
		"email":     {"someone@example.org"},
		"interests": {"math"},
	})
	require.NoError(t, err)
	assert.Equal(t, "math", payload["interests"])
}

func TestValidateRejectsUnknownEnumValue(t *testing.T) {
	v := compile(t)

	_, err := v.Validate(url.Values{
		"email":     {"someone@example.org"},
		"interests": {"art", "skydiving"},
	})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.NotEmpty(t, invalid.Issues)
}

func TestValidateRejectsDuplicateCheckboxValues(t *testing.T) {
	v := compile(t)

	_, err := v.Validate(url.Values{
		"email":     {"someone@example.org"},
		"interests": {"art", "art"},
	})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	v := compile(t)

	_, err := v.Validate(url.Values{"age": {"30"}})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestValidateRejectsNonIntegerNumber(t *testing.T) {
	v := compile(t)

	_, err := v.Validate(url.Values{
		"email": {"someone@example.org"},
		"age":   {"forty"},
	})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestValidateRejectsIntegerOutOfRange(t *testing.T) {
	v := compile(t)

	_, err := v.Validate(url.Values{
		"email": {"someone@example.org"},
		"age":   {"200"},
	})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestValidateRejectsUnknownField(t *testing.T) {
	v := compile(t)

	_, err := v.Validate(url.Values{
		"email": {"someone@example.org"},
		"bogus": {"x"},
	})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestValidateRejectsOverlongString(t *testing.T) {
	v := compile(t)

	long := make([]byte, 41)
	for i := range long {
		long[i] = 'a'
	}
	_, err := v.Validate(url.Values{"email": {string(long)}})
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
}
