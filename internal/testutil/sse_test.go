package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSEEvents(t *testing.T) {
	body := "event: chunk\ndata: {\"content\":\"hello\"}\n\n" +
		"event: chunk\ndata: {\"content\":\"world\"}\n\n" +
		"event: done\ndata: {}\n\n"

	events := ParseSSEEvents(t, body)
	require.Len(t, events, 3)
	assert.Equal(t, "chunk", events[0].Type)
	assert.Equal(t, `{"content":"hello"}`, events[0].Data)
	assert.Equal(t, "done", events[2].Type)
}

func TestParseSSEEventsDefaultsAndComments(t *testing.T) {
	body := ": keepalive\ndata: plain\n\n"

	events := ParseSSEEvents(t, body)
	require.Len(t, events, 1)
	assert.Equal(t, "message", events[0].Type)
	assert.Equal(t, "plain", events[0].Data)
}

func TestParseSSEEventsMultilineData(t *testing.T) {
	body := "event: chunk\ndata: line one\ndata: line two\n\n"

	events := ParseSSEEvents(t, body)
	require.Len(t, events, 1)
	assert.Equal(t, "line one\nline two", events[0].Data)
}
