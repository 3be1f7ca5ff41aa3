package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func derive(t *testing.T, doc string) map[string]any {
	t.Helper()
	s, err := Derive([]byte(doc), "form")
	require.NoError(t, err)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return parsed
}

func props(t *testing.T, parsed map[string]any) map[string]any {
	t.Helper()
	p, ok := parsed["properties"].(map[string]any)
	require.True(t, ok)
	return p
}

func TestDeriveRequiredTextInput(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="text" name="email" maxlength="40" required>
	</form>`)

	assert.Equal(t, map[string]any{
		"type":      "string",
		"maxLength": float64(40),
	}, props(t, parsed)["email"])
	assert.Equal(t, []any{"email"}, parsed["required"])
	assert.Equal(t, false, parsed["additionalProperties"])
}

func TestDeriveTextLengthBounds(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="text" name="a" minlength="0" maxlength="0">
		<input type="search" name="b" minlength="3">
		<input type="text" name="c" minlength="oops" maxlength="nope">
	</form>`)
	p := props(t, parsed)

	// minLength only if > 0, maxLength only if >= 0
	assert.Equal(t, map[string]any{"type": "string", "maxLength": float64(0)}, p["a"])
	assert.Equal(t, map[string]any{"type": "string", "minLength": float64(3)}, p["b"])
	assert.Equal(t, map[string]any{"type": "string"}, p["c"])
}

func TestDeriveTextPattern(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="text" name="code" pattern="^[a-z]+$">
	</form>`)
	assert.Equal(t, "^[a-z]+$", props(t, parsed)["code"].(map[string]any)["pattern"])
}

func TestDeriveInvalidPatternFailsFast(t *testing.T) {
	_, err := Derive([]byte(`<form>
		<input type="text" name="ok">
		<input type="text" name="bad" pattern="[">
	</form>`), "form")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestDeriveIntegerBounds(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="number" name="age" min="-5" max="120">
		<input type="range" name="rating" min="1" max="10">
		<v-slider name="mood" max="7"></v-slider>
	</form>`)
	p := props(t, parsed)

	assert.Equal(t, map[string]any{
		"type":    "integer",
		"minimum": float64(-5),
		"maximum": float64(120),
	}, p["age"])
	assert.Equal(t, map[string]any{
		"type":    "integer",
		"minimum": float64(1),
		"maximum": float64(10),
	}, p["rating"])
	assert.Equal(t, map[string]any{
		"type":    "integer",
		"maximum": float64(7),
	}, p["mood"])
}

func TestDeriveInvalidBoundOmittedNotZeroed(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="number" name="n" min="oops">
	</form>`)
	n := props(t, parsed)["n"].(map[string]any)

	// a missing bound must not become 0: that would forbid negatives
	_, present := n["minimum"]
	assert.False(t, present)
}

func TestDeriveSelect(t *testing.T) {
	parsed := derive(t, `<form>
		<select name="lang">
			<option value="">choose...</option>
			<option value="go">Go</option>
			<option value="js">JS</option>
			<option value="go">Go again</option>
		</select>
	</form>`)

	assert.Equal(t, map[string]any{
		"enum": []any{"go", "js"},
	}, props(t, parsed)["lang"])
	assert.Empty(t, parsed["required"])
}

func TestDeriveCheckboxGroup(t *testing.T) {
	parsed := derive(t, `<form>
		<div>
			<input type="checkbox" name="interests" value="art">
			<input type="checkbox" name="interests" value="math">
			<input type="checkbox" name="interests" value="music">
		</div>
	</form>`)

	group := props(t, parsed)["interests"].(map[string]any)
	oneOf := group["oneOf"].([]any)
	require.Len(t, oneOf, 2)

	assert.Equal(t, map[string]any{
		"enum": []any{"art", "math", "music"},
	}, oneOf[0])
	assert.Equal(t, map[string]any{
		"type":        "array",
		"items":       map[string]any{"enum": []any{"art", "math", "music"}},
		"minItems":    float64(1),
		"maxItems":    float64(3),
		"uniqueItems": true,
	}, oneOf[1])
	assert.Empty(t, parsed["required"])
}

func TestDeriveCheckboxGroupMinFromAncestor(t *testing.T) {
	parsed := derive(t, `<form>
		<checkboxes-group min="2">
			<input type="checkbox" name="tags" value="a">
			<input type="checkbox" name="tags" value="b">
			<input type="checkbox" name="tags" value="c">
		</checkboxes-group>
	</form>`)

	group := props(t, parsed)["tags"].(map[string]any)
	array := group["oneOf"].([]any)[1].(map[string]any)
	assert.Equal(t, float64(2), array["minItems"])

	// minItems > 1 makes the group required
	assert.Equal(t, []any{"tags"}, parsed["required"])
}

func TestDeriveRadioGroup(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="radio" name="yesno" value="yes" required>
		<input type="radio" name="yesno" value="no">
	</form>`)

	assert.Equal(t, map[string]any{
		"enum": []any{"yes", "no"},
	}, props(t, parsed)["yesno"])
	assert.Equal(t, []any{"yesno"}, parsed["required"])
}

func TestDeriveUnknownControlsExcluded(t *testing.T) {
	parsed := derive(t, `<form>
		<input type="hidden" name="csrf" value="x">
		<input type="file" name="upload">
		<input type="text" name="note">
	</form>`)
	p := props(t, parsed)

	assert.Contains(t, p, "note")
	assert.NotContains(t, p, "csrf")
	assert.NotContains(t, p, "upload")
}

func TestDeriveNoForm(t *testing.T) {
	_, err := Derive([]byte(`<div>no form here</div>`), "form")
	assert.ErrorIs(t, err, ErrNoForm)
}

func TestDeriveAmbiguousForm(t *testing.T) {
	_, err := Derive([]byte(`<form></form><form></form>`), "form")
	assert.ErrorIs(t, err, ErrAmbiguousForm)
}

func TestDeriveSelectorSubset(t *testing.T) {
	doc := []byte(`
		<form id="other"><input type="text" name="x"></form>
		<form id="survey" class="main"><input type="text" name="y"></form>
	`)

	s, err := Derive(doc, "form#survey")
	require.NoError(t, err)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"y"`)
	assert.NotContains(t, string(raw), `"x"`)

	_, err = Derive(doc, "form.main")
	require.NoError(t, err)

	_, err = Derive(doc, "#nope")
	assert.ErrorIs(t, err, ErrNoForm)
}

func TestDeriveStableCategoryOrder(t *testing.T) {
	// checkbox group first in the document, text last: serialization
	// still follows the category pass order
	doc := `<form>
		<input type="checkbox" name="boxes" value="a">
		<input type="checkbox" name="boxes" value="b">
		<input type="number" name="num">
		<input type="text" name="txt">
	</form>`

	s, err := Derive([]byte(doc), "form")
	require.NoError(t, err)
	first, err := json.Marshal(s)
	require.NoError(t, err)

	txt := indexOf(t, first, `"txt"`)
	num := indexOf(t, first, `"num"`)
	boxes := indexOf(t, first, `"boxes"`)
	assert.Less(t, txt, num)
	assert.Less(t, num, boxes)

	s, err = Derive([]byte(doc), "form")
	require.NoError(t, err)
	second, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func indexOf(t *testing.T, raw []byte, sub string) int {
	t.Helper()
	i := strings.Index(string(raw), sub)
	require.GreaterOrEqual(t, i, 0, "missing %s", sub)
	return i
}
