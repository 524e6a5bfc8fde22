package domain

import "strings"

// Image is a photo attached to a chat turn. Either Data (base64 body) with
// MIMEType, or URL, must be set.
type Image struct {
	MIMEType string `json:"mime_type" validate:"required_with=Data,max=100"`
	Data     string `json:"data,omitempty" validate:"omitempty,base64"`
	URL      string `json:"url,omitempty" validate:"required_without=Data,max=2048"`
}

// StoredURL is the reference persisted in Message.ImageURL
func (img *Image) StoredURL() string {
	if img == nil {
		return ""
	}
	if img.URL != "" {
		return img.URL
	}
	return "data:" + img.MIMEType + ";base64," + img.Data
}

// Inline returns the base64 body of the image, decoding a data: URL if needed.
// ok is false when the image is only available by remote reference.
func (img *Image) Inline() (mimeType, data string, ok bool) {
	if img == nil {
		return "", "", false
	}
	if img.Data != "" {
		return img.MIMEType, img.Data, true
	}

	rest, found := strings.CutPrefix(img.URL, "data:")
	if !found {
		return "", "", false
	}
	meta, body, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mimeType, found = strings.CutSuffix(meta, ";base64")
	if !found {
		return "", "", false
	}
	return mimeType, body, true
}

// SendMessageInput is one user turn. An empty SessionID starts a new session.
type SendMessageInput struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	Content   string `json:"content" validate:"max=8000"`
	Image     *Image `json:"image,omitempty"`
}

// ChatState is the denormalized view of everything the identity can see
type ChatState struct {
	Sessions        []SessionView `json:"sessions"`
	ActiveSessionID string        `json:"active_session_id,omitempty"`
	// Awaiting is true while an assistant reply is pending for the active session
	Awaiting bool `json:"awaiting"`
}

// Session returns the view of session id, or nil
func (s *ChatState) Session(id string) *SessionView {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// TurnResult is the outcome of SendMessage. Failed turns keep the user
// message but carry no assistant message.
type TurnResult struct {
	State            *ChatState `json:"state"`
	SessionID        string     `json:"session_id"`
	UserMessage      *Message   `json:"user_message,omitempty"`
	AssistantMessage *Message   `json:"assistant_message,omitempty"`
	Failed           bool       `json:"failed"`
}
