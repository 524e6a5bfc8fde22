package cli

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/spf13/cobra"
)

var (
	sendSession string
	sendImage   string
	showAll     bool
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}

		state, err := application.Chat.NewChat(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", state.ActiveSessionID)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List chats, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}

		state, err := application.Chat.Reload(cmd.Context(), id)
		if err != nil {
			return err
		}

		printSessions(cmd.OutOrStdout(), state)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}

		state, err := application.Chat.SelectSession(cmd.Context(), id, args[0])
		if err != nil {
			return err
		}

		printTranscript(cmd.OutOrStdout(), state.Session(args[0]), showAll)
		if state.Awaiting {
			fmt.Fprintln(cmd.OutOrStdout(), awaitingNotice)
		}
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Describe a plant problem and get a diagnosis",
	Long: `Send one message to FloraExpert and print the reply.

Without --session a new chat is started. Attach a photo with --image.

Examples:
  flora send "Why are my tomato leaves yellow?"
  flora send --image ./monstera.jpg
  flora send --session 3f1c... "It has brown spots too"`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendSession, "session", "s", "", "continue an existing chat")
	sendCmd.Flags().StringVarP(&sendImage, "image", "i", "", "attach a photo")
	showCmd.Flags().BoolVar(&showAll, "raw", false, "print image references in full")
}

func runSend(cmd *cobra.Command, args []string) error {
	id, err := currentIdentity()
	if err != nil {
		return err
	}

	input := domain.SendMessageInput{
		SessionID: sendSession,
		Content:   strings.Join(args, " "),
	}
	if sendImage != "" {
		input.Image, err = loadImage(sendImage)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), awaitingNotice)

	result, err := application.Chat.SendMessage(cmd.Context(), id, input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Failed || result.AssistantMessage == nil {
		fmt.Fprintln(out, "Your message was saved but no reply could be produced. Try again.")
	} else {
		fmt.Fprintln(out, result.AssistantMessage.Content)
	}
	fmt.Fprintf(out, "\n(session %s)\n", result.SessionID)
	return nil
}

// loadImage reads a photo from disk into an inline image
func loadImage(path string) (*domain.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s is not an image (%s)", path, mimeType)
	}

	return &domain.Image{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}
