package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/session"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		actor int64
		email string
		query string
		plain bool
		trace bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Starts an interactive conversation, or answers a single --query.

Type /reset to start a new conversation and /exit to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, err := bootstrap(ctx, flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			actorID, err := resolveActor(ctx, rt.store, actor, email)
			if err != nil {
				return err
			}

			c := &chat{
				kernel: rt.kernel,
				sess:   session.New(actorID),
				out:    newPrinter(cmd.OutOrStdout(), plain, trace),
			}
			if query != "" {
				return c.turn(ctx, query)
			}
			return c.loop(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().Int64Var(&actor, "actor", 1, "Actor id the conversation runs as")
	cmd.Flags().StringVar(&email, "as", "", "Run as the user registered under this email")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Answer one query and exit")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print replies without markdown rendering")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print the tool calls of each turn")
	return cmd
}

// conversation is the part of the kernel the chat loop uses.
type conversation interface {
	Turn(ctx context.Context, sess session.Session, query string) (*kernel.Result, error)
}

type chat struct {
	kernel conversation
	sess   session.Session
	out    *printer
}

func (c *chat) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		c.out.prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			c.sess = session.New(c.sess.ActorID())
			c.out.notice("Started a new conversation.")
			continue
		}

		if err := c.turn(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.out.failure(err)
		}
	}
}

func (c *chat) turn(ctx context.Context, query string) error {
	result, err := c.kernel.Turn(ctx, c.sess, query)
	if result != nil {
		c.out.toolCalls(result.ToolCalls)
	}
	if err != nil {
		return err
	}
	c.out.reply(result.Reply)
	return nil
}

// printer writes replies, rendering markdown when out is a terminal.
type printer struct {
	w      io.Writer
	render func(string) (string, error)
	trace  bool
}

func newPrinter(w io.Writer, plain, trace bool) *printer {
	p := &printer{w: w, trace: trace}
	if plain {
		return p
	}

	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p
	}

	width := 80
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
		width = cols
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err == nil {
		p.render = r.Render
	}
	return p
}

func (p *printer) prompt() {
	fmt.Fprint(p.w, color.GreenString("you> "))
}

func (p *printer) reply(text string) {
	if p.render != nil {
		if rendered, err := p.render(text); err == nil {
			fmt.Fprint(p.w, rendered)
			return
		}
	}
	fmt.Fprintln(p.w, text)
}

func (p *printer) toolCalls(calls []kernel.ToolCallRecord) {
	if !p.trace {
		return
	}
	for _, tc := range calls {
		fmt.Fprintf(p.w, "  %s %s(%s)\n", color.CyanString("%s ->", tc.Worker), tc.Name, tc.Arguments)
		if tc.IsError {
			fmt.Fprintf(p.w, "    %s\n", color.RedString("%s", tc.Result))
		} else {
			fmt.Fprintf(p.w, "    %s\n", color.HiBlackString("%s", truncate(tc.Result, 200)))
		}
	}
}

func (p *printer) notice(msg string) {
	fmt.Fprintln(p.w, color.YellowString("%s", msg))
}

func (p *printer) failure(err error) {
	fmt.Fprintln(p.w, color.RedString("error: %v", err))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
