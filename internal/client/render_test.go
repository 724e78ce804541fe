package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderAnswerFormatting(t *testing.T) {
	got := RenderAnswer("**Key** idea\n*softly* and ***both***")
	assert.Contains(t, got, "<strong>Key</strong>")
	assert.Contains(t, got, "<em>softly</em>")
	assert.Contains(t, got, "both</strong>")
	assert.Contains(t, got, "<em><strong>")
	assert.Contains(t, got, "<br")
	assert.NotContains(t, got, "<p>")
}

func TestRenderAnswerEscapesMarkup(t *testing.T) {
	got := RenderAnswer(`<script>alert(1)</script> <img src=x onerror=alert(1)> **ok**`)
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "<img")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "<strong>ok</strong>")
}

func TestRenderAnswerLeavesArithmeticAlone(t *testing.T) {
	got := RenderAnswer("The volume is 2 * 3 * 4 = 24 & done")
	assert.NotContains(t, got, "<em>")
	assert.Contains(t, got, "2 * 3 * 4 = 24 &amp; done")
}

func TestRenderAnswerParagraphs(t *testing.T) {
	got := RenderAnswer("first\r\n\r\nsecond")
	assert.Equal(t, "first<br>second", got)
}
