package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rrens/flora-expert/internal/domain"
)

const awaitingNotice = "FloraExpert is analyzing..."

const imageRefLimit = 60

func printSessions(w io.Writer, state *domain.ChatState) {
	if state == nil || len(state.Sessions) == 0 {
		fmt.Fprintln(w, "No chats yet. Start one with 'flora send'.")
		return
	}

	for _, s := range state.Sessions {
		fmt.Fprintf(w, "%s  %s  %-28s  %d messages\n",
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			s.Title,
			len(s.Messages),
		)
	}
}

func printTranscript(w io.Writer, session *domain.SessionView, raw bool) {
	if session == nil {
		return
	}

	fmt.Fprintf(w, "# %s\n\n", session.Title)
	for _, m := range session.Messages {
		speaker := "You"
		if m.Role == domain.RoleAssistant {
			speaker = "FloraExpert"
		}

		fmt.Fprintf(w, "[%s] %s:\n", m.Timestamp.Local().Format(time.TimeOnly), speaker)
		if m.ImageURL != "" {
			fmt.Fprintf(w, "  [photo] %s\n", imageRef(m.ImageURL, raw))
		}
		if m.Content != "" {
			for _, line := range strings.Split(m.Content, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
		fmt.Fprintln(w)
	}
}

// imageRef shortens inline data URLs, which can be megabytes long
func imageRef(url string, raw bool) string {
	if raw || len(url) <= imageRefLimit {
		return url
	}
	return url[:imageRefLimit] + "..."
}
