package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/rfp-cli/pkg/anthropic"
)

func TestCleanJSON_Plain(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
}

func TestCleanJSON_JSONFence(t *testing.T) {
	text := "```json\n{\"total_price\": 9500}\n```"
	assert.Equal(t, `{"total_price": 9500}`, cleanJSON(text))
}

func TestCleanJSON_BareFence(t *testing.T) {
	text := "```\n{\"a\": true}\n```"
	assert.Equal(t, `{"a": true}`, cleanJSON(text))
}

func TestCleanJSON_SurroundingProse(t *testing.T) {
	text := "Here is the extracted data:\n{\"a\": 1}\nLet me know if you need more."
	assert.Equal(t, `{"a": 1}`, cleanJSON(text))
}

func TestCleanJSON_FenceAndProse(t *testing.T) {
	text := "```json\nSure, here you go: {\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, cleanJSON(text))
}

func TestCleanJSON_NoObject(t *testing.T) {
	assert.Equal(t, "no json here", cleanJSON("  no json here  "))
}

func TestCleanJSON_KeepsNestedBraces(t *testing.T) {
	text := `{"outer": {"inner": 1}}`
	assert.Equal(t, text, cleanJSON(text))
}

func TestExtractText_ConcatenatesTextBlocks(t *testing.T) {
	resp := &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{
			{Type: "text", Text: "hello "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "world"},
		},
	}
	assert.Equal(t, "hello world", extractText(resp))
}
