package chat

import (
	"testing"

	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

func TestBuildMessages_Layout(t *testing.T) {
	t.Parallel()

	history := []Turn{
		{Role: RoleUser, Content: "I feel anxious"},
		{Role: RoleAssistant, Content: "What is on your mind?"},
	}

	msgs := BuildMessages("persona", history, "work mostly")

	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
	if msgs[0].Role != provider.MessageRoleSystem || msgs[0].Content != "persona" {
		t.Errorf("msgs[0] = %+v, want system prompt first", msgs[0])
	}
	if msgs[1].Role != provider.MessageRoleUser {
		t.Errorf("msgs[1].Role = %q, want user", msgs[1].Role)
	}
	if msgs[2].Role != provider.MessageRoleAssistant {
		t.Errorf("msgs[2].Role = %q, want assistant", msgs[2].Role)
	}
	if msgs[3].Role != provider.MessageRoleUser || msgs[3].Content != "work mostly" {
		t.Errorf("msgs[3] = %+v, want new user message last", msgs[3])
	}
}

func TestBuildMessages_EmptyHistory(t *testing.T) {
	t.Parallel()

	msgs := BuildMessages("persona", nil, "first message")
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[1].Content != "first message" {
		t.Errorf("msgs[1].Content = %q", msgs[1].Content)
	}
}
