// ABOUTME: Terminal co-authoring client for the chat subcommand
// ABOUTME: Sends lines to the gateway, extracts editor fragments and keeps the proposal file current

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/proposal-gateway/internal/client"
	"github.com/2389/proposal-gateway/internal/document"
)

const defaultChatOut = "proposal.html"

const welcomeMessage = `👋 Welcome to the AI Project Proposal Assistant!

I'm here to help you create a comprehensive, professional proposal for your AI project that will be submitted to the AI registry team for validation and approval.

We'll work together to document:
✨ General information about your project
🔧 Technical details and approach
⚖️ Legal and compliance considerations
📊 Data handling and security

Feel free to share your idea in as much detail as you'd like - whether it's a fully formed concept or just a spark of an idea. I'll guide you through the process and ask questions to fill in any gaps.

What's your AI project idea?`

const resetMessage = "Conversation reset. How can I help you with your new AI project proposal?"

// fallbackError is shown when the gateway gave no usable error message.
const fallbackError = "Sorry, I encountered an error. Please check the backend connection."

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>AI Project Proposal</title>
<style>
body { font-family: sans-serif; max-width: 50rem; margin: 2rem auto; line-height: 1.5; }
hr.section-divider { margin: 2rem 0; border: 0; border-top: 1px solid #ccc; }
</style>
</head>
<body>
%s
</body>
</html>
`

var errQuit = errors.New("quit")

// conversationAPI is the part of the gateway client the chat loop needs.
type conversationAPI interface {
	SendMessage(ctx context.Context, message, sessionID string) (*client.MessageReply, error)
	Reset(ctx context.Context, sessionID string) (string, error)
}

// chatSession holds the terminal client's conversation and document state.
type chatSession struct {
	api       conversationAPI
	out       io.Writer
	outPath   string
	sessionID string
	document  string
}

func newChatSession(api conversationAPI, out io.Writer, outPath string) *chatSession {
	return &chatSession{
		api:      api,
		out:      out,
		outPath:  outPath,
		document: document.Reset(),
	}
}

// parseChatFlags reads --out in both "--out file" and "--out=file" forms.
func parseChatFlags(args []string) (string, error) {
	out := defaultChatOut
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--out" || arg == "-o":
			if i+1 >= len(args) {
				return "", fmt.Errorf("--out requires a value")
			}
			out = args[i+1]
			i++
		case strings.HasPrefix(arg, "--out="):
			out = strings.TrimPrefix(arg, "--out=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	if out == "" {
		return "", fmt.Errorf("--out cannot be empty")
	}
	return out, nil
}

func runChat(ctx context.Context, args []string) error {
	outPath, err := parseChatFlags(args)
	if err != nil {
		return err
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	gray := color.New(color.FgHiBlack)
	gray.Printf("Connected to %s. Proposal file: %s\n", c.BaseURL(), outPath)
	gray.Println("Type a message and press Enter. /reset starts over, /quit exits.")
	fmt.Println()

	s := newChatSession(c, os.Stdout, outPath)
	s.printAssistant(welcomeMessage)

	if err := s.run(ctx, os.Stdin); err != nil {
		return err
	}

	fmt.Println("\nGoodbye!")
	return nil
}

// run reads lines from in until EOF, /quit or ctx cancellation.
func (s *chatSession) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		fmt.Fprint(s.out, "> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
			default:
			}
			return nil
		}

		if err := s.handleLine(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

// handleLine processes one line of user input. Conversation failures are
// printed and do not end the session; only local file errors are returned.
func (s *chatSession) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return nil
	case "/quit", "/exit", "/q":
		return errQuit
	case "/reset":
		return s.reset(ctx)
	}

	reply, err := s.api.SendMessage(ctx, line, s.sessionID)
	if err != nil {
		s.printError(err)
		return nil
	}
	s.sessionID = reply.SessionID

	ext, doc := document.Process(s.document, reply.RawReply)
	if ext.Message != "" {
		s.printAssistant(ext.Message)
	}
	if ext.HasFragment() {
		s.document = doc
		if err := s.writeDocument(); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(s.out, "📝 Proposal updated: %s\n", s.outPath)
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *chatSession) reset(ctx context.Context) error {
	newID, err := s.api.Reset(ctx, s.sessionID)
	if err != nil {
		s.printError(err)
		return nil
	}

	s.sessionID = newID
	s.document = document.Reset()
	if err := s.writeDocument(); err != nil {
		return err
	}

	s.printAssistant(resetMessage)
	fmt.Fprintln(s.out)
	return nil
}

// writeDocument saves the accumulated document as a standalone HTML page.
func (s *chatSession) writeDocument() error {
	if dir := filepath.Dir(s.outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	page := fmt.Sprintf(pageTemplate, s.document)
	if err := os.WriteFile(s.outPath, []byte(page), 0644); err != nil {
		return fmt.Errorf("writing proposal: %w", err)
	}
	return nil
}

func (s *chatSession) printAssistant(msg string) {
	color.New(color.FgGreen, color.Bold).Fprint(s.out, "Assistant: ")
	fmt.Fprintln(s.out, msg)
}

func (s *chatSession) printError(err error) {
	msg := fallbackError
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	color.New(color.FgRed).Fprintf(s.out, "❌ Error: %s\n\n", msg)
}
