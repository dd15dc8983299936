package app

import (
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"fleetchat/internal/conversation"
	"fleetchat/internal/types"
)

type renderKey struct {
	id    types.MessageID
	width int
}

type renderedMessage struct {
	text      string
	completed bool
	block     string
}

// transcriptRenderer caches rendered blocks per message. Completed answers
// never change, so markdown is rendered once per width.
type transcriptRenderer struct {
	cache map[renderKey]renderedMessage
}

func newTranscriptRenderer() *transcriptRenderer {
	return &transcriptRenderer{cache: map[renderKey]renderedMessage{}}
}

func (r *transcriptRenderer) Render(messages []types.Message, width int) string {
	if width <= 0 {
		width = defaultViewportWidth
	}
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		blocks = append(blocks, r.renderMessage(msg, width))
	}
	return strings.Join(blocks, "\n")
}

func (r *transcriptRenderer) renderMessage(msg types.Message, width int) string {
	key := renderKey{id: msg.ID, width: width}
	if cached, ok := r.cache[key]; ok && cached.text == msg.Text && cached.completed == msg.Completed {
		return cached.block
	}
	block := renderBubble(msg, width)
	r.cache[key] = renderedMessage{text: msg.Text, completed: msg.Completed, block: block}
	return block
}

func renderBubble(msg types.Message, width int) string {
	inner := max(10, width-6)
	switch {
	case msg.Sender == types.SenderUser:
		text := xansi.Hardwrap(sanitizeText(msg.Text), inner, true)
		return chatMetaStyle.Render("You") + "\n" + userBubbleStyle.Render(text)
	case msg.Thinking():
		text := msg.Text
		if text == "" {
			text = conversation.PlaceholderText
		}
		return chatMetaStyle.Render("Agent") + "\n" + pendingBubbleStyle.Render(sanitizeLine(text))
	default:
		body := renderMarkdown(sanitizeText(msg.Text), inner)
		out := chatMetaStyle.Render("Agent") + "\n" + agentBubbleStyle.Render(body)
		if meta := metadataSummary(msg.Metadata); meta != "" {
			out += "\n" + chatMetaStyle.Render(truncateLine(meta, width))
		}
		return out
	}
}

func metadataSummary(meta *types.DiagnosticMetadata) string {
	if meta.Empty() {
		return ""
	}
	parts := make([]string, 0, 3)
	if meta.ThreadID != "" {
		parts = append(parts, "thread "+meta.ThreadID)
	}
	if n := len(meta.UsedTools); n > 0 {
		parts = append(parts, fmt.Sprintf("%d tools", n))
	}
	if meta.CreatedAt != "" {
		parts = append(parts, meta.CreatedAt)
	}
	return strings.Join(parts, " • ")
}

func truncateLine(text string, width int) string {
	if width <= 1 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}
