// File: internal/decode/chatgpt_test.go
package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSSE_DeltaMixedPatterns(t *testing.T) {
	body := "event: delta_encoding\n" +
		"data: \"v1\"\n" +
		"data: {\"p\":\"/message/content/parts/0\",\"o\":\"append\",\"v\":\"The \"}\n" +
		"data: {\"v\":\"quick \"}\n" +
		"data: {\"o\":\"patch\",\"v\":[" +
		"{\"p\":\"/message/content/parts/0\",\"o\":\"append\",\"v\":\"brown \"}," +
		"{\"p\":\"/message/status\",\"o\":\"replace\",\"v\":\"finished\"}," +
		"{\"p\":\"/message/content/parts/0\",\"o\":\"append\",\"v\":\"fox\"}" +
		"]}\n" +
		"data: {\"type\":\"message_stream_complete\",\"conversation_id\":\"abc\"}\n" +
		"data: [DONE]\n"

	assert.Equal(t, "The quick brown fox", extractSSE(body))
}

func TestExtractSSE_DeltaIgnoresNonPartsPaths(t *testing.T) {
	body := "event: delta_encoding\n" +
		"data: {\"p\":\"/message/metadata/model_slug\",\"o\":\"append\",\"v\":\"gpt\"}\n" +
		"data: {\"p\":\"/message/content/parts/0\",\"o\":\"append\",\"v\":\"kept\"}\n"

	assert.Equal(t, "kept", extractSSE(body))
}

func TestExtractSSE_LegacySnapshotsKeepLongest(t *testing.T) {
	// Legacy mode: every data line carries the whole message so far.
	// Concatenating them would duplicate content; the longest wins.
	body := "data: {\"message\":{\"content\":{\"parts\":[\"He\"]}}}\n" +
		"data: {\"message\":{\"content\":{\"parts\":[\"Hello the\"]}}}\n" +
		"data: {\"message\":{\"content\":{\"parts\":[\"Hello there\"]}}}\n" +
		"data: [DONE]\n"

	assert.Equal(t, "Hello there", extractSSE(body))
}

func TestExtractSSE_LegacySnapshotsOutOfOrder(t *testing.T) {
	body := "data: {\"message\":{\"content\":{\"parts\":[\"Hello there\"]}}}\n" +
		"data: {\"message\":{\"content\":{\"parts\":[\"He\"]}}}\n"

	assert.Equal(t, "Hello there", extractSSE(body))
}

func TestExtractSSE_LegacyTokenShapeConcatenates(t *testing.T) {
	// The incremental token shape is genuinely incremental and therefore
	// concatenated even though the surrounding mode is snapshot-based.
	body := "data: {\"token\":\"a\"}\n" +
		"data: {\"token\":\"b\"}\n" +
		"data: {\"token\":\"c\"}\n"

	assert.Equal(t, "abc", extractSSE(body))
}

func TestExtractSSE_NonDataLinesSkipped(t *testing.T) {
	body := "retry: 3000\n" +
		": keepalive comment\n" +
		"id: 7\n" +
		"data: {\"token\":\"only\"}\n"

	assert.Equal(t, "only", extractSSE(body))
}

func TestExtractSSE_MalformedDataLinesSkipped(t *testing.T) {
	body := "event: delta_encoding\n" +
		"data: {broken json\n" +
		"data: 12345\n" +
		"data: {\"v\":\"survives\"}\n"

	assert.Equal(t, "survives", extractSSE(body))
}

func TestExtractSSE_CarriageReturnsTolerated(t *testing.T) {
	body := "event: delta_encoding\r\ndata: {\"v\":\"crlf\"}\r\n"
	assert.Equal(t, "crlf", extractSSE(body))
}
