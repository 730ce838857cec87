// File: internal/decode/gemini_test.go
package decode

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeGeminiChunkLine builds one outer envelope line whose nested JSON
// string carries text at the fixed structural path (response-content array
// at index 4, first entry, text array at index 1).
func makeGeminiChunkLine(t *testing.T, text string) string {
	t.Helper()
	nested := fmt.Sprintf(`[null,null,null,null,[["rc_1",[%s]]]]`, mustJSON(t, text))
	return fmt.Sprintf(`[["wrb.fr",null,%s]]`, mustJSON(t, nested))
}

// makeGeminiChunkLineBareText is the format variant where the text field is
// a bare string instead of a one-element array.
func makeGeminiChunkLineBareText(t *testing.T, text string) string {
	t.Helper()
	nested := fmt.Sprintf(`[null,null,null,null,[["rc_1",%s]]]`, mustJSON(t, text))
	return fmt.Sprintf(`[["wrb.fr",null,%s]]`, mustJSON(t, nested))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestExtractGeminiChunks_LongestWinsRegardlessOfOrder(t *testing.T) {
	short := makeGeminiChunkLine(t, "Par")
	long := makeGeminiChunkLine(t, "Partial answer")

	forward := antiHijackPrefix + "\n142\n" + short + "\n389\n" + long + "\n"
	reversed := antiHijackPrefix + "\n389\n" + long + "\n142\n" + short + "\n"

	assert.Equal(t, "Partial answer", extractGeminiChunks(forward))
	assert.Equal(t, "Partial answer", extractGeminiChunks(reversed))
}

func TestExtractGeminiChunks_BareStringTextField(t *testing.T) {
	body := antiHijackPrefix + "\n" + makeGeminiChunkLineBareText(t, "bare string text") + "\n"
	assert.Equal(t, "bare string text", extractGeminiChunks(body))
}

func TestExtractGeminiChunks_SkipsUnparseableLines(t *testing.T) {
	good := makeGeminiChunkLine(t, "survivor")
	body := antiHijackPrefix + "\n" +
		"57\n" + // byte-count framing
		"[[\"wrb.fr\",null,\"not json inside\"]]\n" + // nested string fails to parse
		"total garbage {{{\n" +
		"[\"flat\",\"array\",\"no nesting\"]\n" +
		good + "\n"

	assert.Equal(t, "survivor", extractGeminiChunks(body))
}

func TestExtractGeminiChunks_EmptyAndControlOnly(t *testing.T) {
	assert.Empty(t, extractGeminiChunks(antiHijackPrefix))
	assert.Empty(t, extractGeminiChunks(antiHijackPrefix+"\n12\n34\n"))
	assert.Empty(t, extractGeminiChunks(""))
}

func TestIsDecimal(t *testing.T) {
	assert.True(t, isDecimal("42"))
	assert.True(t, isDecimal("0"))
	assert.False(t, isDecimal(""))
	assert.False(t, isDecimal("12a"))
	assert.False(t, isDecimal("-3"))
}
