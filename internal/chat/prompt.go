package chat

import "github.com/MichalKokolus/chatbot-advisor/internal/provider"

// DefaultMaxHistoryTurns bounds how much conversation context is sent to
// the model. Truncation lives here, not in Session: how much context to
// send is a prompting concern, and the session log itself stays complete.
const DefaultMaxHistoryTurns = 10

// DefaultSystemPrompt is the advisor persona plus its safety rules. It is
// static configuration; deployments may override it in the chat module
// config.
const DefaultSystemPrompt = `You are a compassionate and professional psychological advisor assistant. Your role is to:

1. Provide emotional support and guidance
2. Ask thoughtful questions to help users explore their feelings and thoughts
3. Suggest healthy coping strategies and techniques
4. Be empathetic, non-judgmental, and supportive
5. Encourage self-reflection and personal growth
6. Always maintain professional boundaries

IMPORTANT SAFETY RULES:
- Never diagnose mental health conditions or provide medical advice
- Always encourage users to seek professional help for serious mental health concerns
- Never suggest or discuss self-harm or harmful activities
- If a user expresses thoughts of ending their life, immediately encourage them to contact emergency services or a crisis hotline
- Stay focused on psychological support - do not discuss unrelated topics
- Be encouraging and help users find hope and positive perspectives

Remember: You are here to listen, support, and guide - not to replace professional mental health treatment.`

// FallbackMessage is returned whenever the completion capability fails or
// produces nothing. It is a safety net, never an error: the user sees an
// in-character apology instead of a provider failure.
const FallbackMessage = "I apologize, but I'm having trouble processing your message right now. " +
	"How are you feeling at the moment? I'm here to listen and support you."

// BuildMessages assembles the completion request payload: the system
// prompt, the most recent history turns in order, then the new user
// message. history must not already contain the new message.
func BuildMessages(system string, history []Turn, userMessage string) []provider.LLMMessage {
	msgs := make([]provider.LLMMessage, 0, len(history)+2)
	msgs = append(msgs, provider.LLMMessage{
		Role:    provider.MessageRoleSystem,
		Content: system,
	})
	for _, turn := range history {
		role := provider.MessageRoleUser
		if turn.Role == RoleAssistant {
			role = provider.MessageRoleAssistant
		}
		msgs = append(msgs, provider.LLMMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	msgs = append(msgs, provider.LLMMessage{
		Role:    provider.MessageRoleUser,
		Content: userMessage,
	})
	return msgs
}
