// File: internal/decode/shapes_test.go
package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestMessagePartsShape(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected string
		matched  bool
	}{
		{"nested parts", `{"message":{"content":{"parts":["a","b"]}}}`, "ab", true},
		{"top level parts", `{"parts":["x"]}`, "x", true},
		{"non-string entries skipped", `{"parts":["x",7,null,"y"]}`, "xy", true},
		{"parts not array", `{"message":{"content":{"parts":"x"}}}`, "", false},
		{"all non-string", `{"parts":[1,2]}`, "", false},
		{"missing", `{"other":true}`, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := messagePartsShape.extract(gjson.Parse(tc.payload))
			assert.Equal(t, tc.matched, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTokenShape(t *testing.T) {
	got, ok := tokenShape.extract(gjson.Parse(`{"token":"inc"}`))
	assert.True(t, ok)
	assert.Equal(t, "inc", got)

	_, ok = tokenShape.extract(gjson.Parse(`{"token":5}`))
	assert.False(t, ok)

	_, ok = tokenShape.extract(gjson.Parse(`{"text":"no"}`))
	assert.False(t, ok)
}

func TestCandidatesShape(t *testing.T) {
	payload := `{"candidates":[
		{"content":{"parts":[{"text":"first "},{"text":"candidate"}]}},
		{"content":{"parts":[{"text":"second candidate"}]}}
	]}`
	got, ok := candidatesShape.extract(gjson.Parse(payload))
	assert.True(t, ok)
	assert.Equal(t, "first candidate", got)

	_, ok = candidatesShape.extract(gjson.Parse(`{"candidates":[]}`))
	assert.False(t, ok)

	_, ok = candidatesShape.extract(gjson.Parse(`{"candidates":[{"content":{"parts":[{"no_text":1}]}}]}`))
	assert.False(t, ok)
}

func TestProbeShapes_OrderAndFailure(t *testing.T) {
	// A document matching more than one probe resolves to the first.
	both := `{"message":{"content":{"parts":["parts win"]}},"token":"token loses"}`
	assert.Equal(t, "parts win", probeShapes(both, streamShapes))

	assert.Empty(t, probeShapes("not json", streamShapes))
	assert.Empty(t, probeShapes("", streamShapes))
	assert.Empty(t, probeShapes(`[1,2]`, streamShapes))
	assert.Empty(t, probeShapes(`{"unrelated":true}`, streamShapes))

	// The fetch-body probe set does not include the token shape.
	assert.Empty(t, probeShapes(`{"token":"x"}`, fetchBodyShapes))
}
