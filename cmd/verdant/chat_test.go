package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/verdant/ai/chat"
)

type echoHandler struct {
	messages []string
	fail     string
}

func (h *echoHandler) HandleTurn(_ context.Context, userID, plantID int64, message string) (*chat.OutboundMessage, error) {
	h.messages = append(h.messages, message)
	if message == h.fail {
		return nil, errors.New("llm unavailable")
	}
	return &chat.OutboundMessage{UserID: userID, PlantID: plantID, Message: "re: " + message, Direction: chat.DirectionBot}, nil
}

func TestRunREPL(t *testing.T) {
	h := &echoHandler{fail: "boom"}
	in := strings.NewReader("안녕\n\n  boom \n물 줄까?\n/quit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), h, in, &out, 1, 2))

	assert.Equal(t, []string{"안녕", "boom", "물 줄까?"}, h.messages)
	assert.Contains(t, out.String(), "re: 안녕")
	assert.Contains(t, out.String(), "[error] llm unavailable")
	assert.Contains(t, out.String(), "re: 물 줄까?")
	assert.NotContains(t, out.String(), "ignored")
}

func TestRunREPL_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := &echoHandler{}
	require.NoError(t, runREPL(ctx, h, strings.NewReader("안녕\n"), &bytes.Buffer{}, 1, 1))
	assert.Empty(t, h.messages)
}
