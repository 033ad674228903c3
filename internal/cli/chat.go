package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/kai-companion/internal/bootstrap"
	"github.com/suPer8Hu/kai-companion/internal/chat"
	"github.com/suPer8Hu/kai-companion/internal/identity"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Kai from the terminal",
	Long: `Start a new session as the given user and chat line by line.

Replies stream as they arrive. Type /quit or send EOF (Ctrl-D) to leave.

Examples:
  companion chat --user alice
  RESUME_HISTORY=true companion chat --user alice`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "username to chat as (required)")
	_ = chatCmd.MarkFlagRequired("user")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if missing := cfg.MissingRequired(); len(missing) > 0 {
		printConfigError(cmd.ErrOrStderr(), missing)
		return &MissingConfigError{Missing: missing}
	}

	userID, err := identity.NormalizeUsername(chatUser)
	if err != nil {
		return err
	}

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctrl := chat.NewController(app.Store, app.Opener, chat.Options{
		ResumeHistory: cfg.ResumeHistory,
		StreamTimeout: cfg.StreamTimeout,
	})
	if err := ctrl.SignIn(ctx, userID); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), chat.SessionFailedText)
		return err
	}
	defer ctrl.SignOut()

	return chatLoop(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
}

func printConfigError(w io.Writer, missing []string) {
	fmt.Fprintln(w, "Configuration error. These environment variables are missing:")
	for _, name := range missing {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

// chatLoop reads one message per line until EOF or /quit.
func chatLoop(ctx context.Context, ctrl *chat.Controller, in io.Reader, out io.Writer) error {
	r := &renderer{w: out}
	r.transcript(ctrl.State())

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}

		err := ctrl.Send(ctx, line, r.observe)
		switch {
		case err == nil, errors.Is(err, chat.ErrEmptyInput):
		case errors.Is(err, chat.ErrReply), errors.Is(err, chat.ErrPersistUser):
			// already shown in the transcript or banner
		default:
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// renderer prints transcript updates as a running terminal conversation.
// The user's own lines are already on screen, so only model replies and the
// error banner are written.
type renderer struct {
	w         io.Writer
	streaming bool
	printed   string
	banner    string
}

func (r *renderer) transcript(st chat.State) {
	for _, m := range st.Messages {
		fmt.Fprintf(r.w, "%s: %s\n", speaker(m.Role), m.Content)
	}
	r.showBanner(st.Error)
}

func (r *renderer) showBanner(msg string) {
	if msg != "" && msg != r.banner {
		fmt.Fprintf(r.w, "! %s\n", msg)
	}
	r.banner = msg
}

func (r *renderer) observe(st chat.State) {
	r.showBanner(st.Error)

	n := len(st.Messages)
	if n == 0 || st.Messages[n-1].Role != chat.RoleModel {
		return
	}
	text := strings.TrimSuffix(st.Messages[n-1].Content, chat.Cursor)

	if !r.streaming {
		if st.Loading && text == chat.PlaceholderText {
			r.streaming = true
			r.printed = ""
			fmt.Fprintf(r.w, "%s: ", speaker(chat.RoleModel))
		}
		return
	}
	if text == chat.PlaceholderText {
		return
	}

	switch {
	case text == chat.ReplyErrorText && !st.Loading:
		if r.printed != "" {
			fmt.Fprintln(r.w)
		}
		fmt.Fprint(r.w, text)
	case strings.HasPrefix(text, r.printed):
		fmt.Fprint(r.w, text[len(r.printed):])
	default:
		fmt.Fprint(r.w, text)
	}
	r.printed = text

	if !st.Loading {
		fmt.Fprintln(r.w)
		r.streaming = false
	}
}

func speaker(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	return "Kai"
}
