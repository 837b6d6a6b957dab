package service

import (
	"context"
	"testing"

	inboxservice "github.com/hweber/secondbrain/modules/inbox/service"
	notifymodel "github.com/hweber/secondbrain/modules/notify/model"
	"github.com/stretchr/testify/assert"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCmd  string
		wantArgs []string
		wantFree string
	}{
		{"plain command", "/help", "help", nil, ""},
		{"command with args", "/query Projekt Alpha", "query", []string{"Projekt", "Alpha"}, ""},
		{"command is lowercased", "/TASKS", "tasks", nil, ""},
		{"free text", "Milch kaufen", "", nil, "Milch kaufen"},
		{"free text with slash inside", "heute 1/2 Stunde laufen", "", nil, "heute 1/2 Stunde laufen"},
		{"surrounding whitespace", "  /today  ", "today", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseMessage(tt.input)
			if tt.wantCmd != "" {
				assert.True(t, parsed.IsCommand)
				assert.Equal(t, tt.wantCmd, parsed.Command)
				assert.Equal(t, tt.wantArgs, parsed.Args)
			} else {
				assert.False(t, parsed.IsCommand)
				assert.Equal(t, tt.wantFree, parsed.Freetext)
			}
		})
	}
}

// MockPipeline implements Pipeline
type MockPipeline struct {
	LastText    string
	LastChannel notifymodel.ChannelContext
	Result      inboxservice.Result
}

func (m *MockPipeline) Process(ctx context.Context, text string, channel notifymodel.ChannelContext, confirmed bool, pendingAction map[string]interface{}) inboxservice.Result {
	m.LastText = text
	m.LastChannel = channel
	return m.Result
}

func TestHandleFreetextGoesThroughPipeline(t *testing.T) {
	pipeline := &MockPipeline{Result: inboxservice.Result{Success: true, Message: "✅ Neuer Eintrag in tasks: #1"}}
	svc := NewCommandService(nil, nil, pipeline, nil, nil)

	response := svc.Handle(context.Background(), "Milch kaufen", "chat-9")

	assert.Equal(t, "Milch kaufen", pipeline.LastText)
	assert.Equal(t, notifymodel.ChannelTelegram, pipeline.LastChannel.Channel)
	assert.Equal(t, "chat-9", pipeline.LastChannel.ChannelID)
	assert.Equal(t, "✅ Neuer Eintrag in tasks: #1", response)
}

func TestHandleQueryDelegatesToQueryPipeline(t *testing.T) {
	pipeline := &MockPipeline{Result: inboxservice.Result{Success: true, Message: "Tims Email ist tim@example.com."}}
	svc := NewCommandService(nil, nil, pipeline, nil, nil)

	response := svc.Handle(context.Background(), "/query Email von Tim", "chat-9")

	assert.Equal(t, "? Email von Tim", pipeline.LastText)
	assert.Equal(t, "Tims Email ist tim@example.com.", response)
}

func TestHandleQueryWithoutArgs(t *testing.T) {
	pipeline := &MockPipeline{}
	svc := NewCommandService(nil, nil, pipeline, nil, nil)

	response := svc.Handle(context.Background(), "/query", "chat-9")
	assert.Contains(t, response, "Wonach")
	assert.Empty(t, pipeline.LastText)
}

func TestHandleUnknownCommand(t *testing.T) {
	svc := NewCommandService(nil, nil, &MockPipeline{}, nil, nil)

	response := svc.Handle(context.Background(), "/frobnicate", "chat-9")
	assert.Contains(t, response, "/frobnicate")
	assert.Contains(t, response, "/help")
}

func TestHandleClarificationRendering(t *testing.T) {
	pipeline := &MockPipeline{Result: inboxservice.Result{
		Success:            true,
		NeedsClarification: true,
		Question:           "Aufgabe oder Idee?",
		Options:            []string{"Neue Aufgabe", "Neue Idee"},
	}}
	svc := NewCommandService(nil, nil, pipeline, nil, nil)

	response := svc.Handle(context.Background(), "was mit Garten", "chat-9")
	assert.Contains(t, response, "Aufgabe oder Idee?")
	assert.Contains(t, response, "1. Neue Aufgabe")
	assert.Contains(t, response, "2. Neue Idee")
}
