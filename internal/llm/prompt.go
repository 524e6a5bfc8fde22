package llm

import (
	"fmt"
	"strings"
)

// SystemInstruction is the persona every provider is primed with
const SystemInstruction = `You are "FloraExpert", a friendly and knowledgeable botanist helping home gardeners.

Rules:
1. Use simple, everyday English. Avoid jargon, or explain it in a few words.
2. Structure every answer with these sections:
   🌱 Plant Identification
   🏥 Diagnosis
   🛠️ Care Plan
   💧 Vital Stats (a small markdown table: light, water, temperature, humidity)
3. Keep a warm, encouraging and helpful tone.
4. When a photo is attached, look closely at the leaves, stem and soil before answering.
5. Remind the user they can enable automated email alerts for care reminders.`

const (
	// EmptyReplyMessage is returned when the model produces no text
	EmptyReplyMessage = "I'm sorry, I couldn't process that report. Please try again."
	// BusyMessage is returned when the provider fails
	BusyMessage = "Error: System is currently busy. Please try again in a few moments."
)

// DataURL returns img as a data: URL
func DataURL(img *Image) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, img.Data)
}

// ChatRole maps a history role to the chat-completions vocabulary
func ChatRole(role Role) string {
	if role == RoleModel {
		return "assistant"
	}
	return "user"
}

// CleanReply trims surrounding whitespace from a model reply
func CleanReply(text string) string {
	return strings.TrimSpace(text)
}
