package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/astorre88/chat/internal/app"
	"github.com/astorre88/chat/internal/chat"
	"github.com/astorre88/chat/internal/config"
	"github.com/astorre88/chat/internal/logging"
	"github.com/astorre88/chat/internal/protocol"
	"github.com/astorre88/chat/internal/views/messages"
)

func tailCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Line-oriented client: notifications to stdout, commands from stdin",
		Long: `Prints server-confirmed events as lines and reads lines from stdin:
  /room NAME   ask to join NAME
  /name NAME   ask to be called NAME
  anything else is sent as a chat message`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			return runTail(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runTail(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	log, closer, err := logging.New(cfg.Log, errOut)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	notify, opened := openSignal(printer(out))
	sess := newSession(cfg, notify, &log)
	if err := sess.Start(ctx, cfg.Server.URL); err != nil {
		return err
	}
	defer sess.Close()

	// Input read before the first connection is up would only fail with
	// ErrNotConnected.
	select {
	case <-ctx.Done():
		return nil
	case <-opened:
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, value, ok := parseLine(line, cfg.Session.SlugifyRooms)
			if !ok {
				continue
			}
			if err := perform(sess, cmd, value); err != nil {
				fmt.Fprintf(errOut, "! %v\n", err)
			}
		}
	}
}

// openSignal wraps n so the returned channel closes the first time the
// session reports StateOpen.
func openSignal(n chat.NotifierFuncs) (chat.NotifierFuncs, <-chan struct{}) {
	opened := make(chan struct{})
	var once sync.Once
	onState := n.OnConnectionState
	n.OnConnectionState = func(state chat.ConnectionState) {
		if onState != nil {
			onState(state)
		}
		if state == chat.StateOpen {
			once.Do(func() { close(opened) })
		}
	}
	return n, opened
}

// parseLine maps an input line to a command. Blank lines and commands with
// no argument are skipped.
func parseLine(line string, slugify bool) (protocol.Command, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	for prefix, cmd := range map[string]protocol.Command{"/room": protocol.ChangeRoom, "/name": protocol.SetName} {
		rest, found := strings.CutPrefix(line, prefix)
		if !found || (rest != "" && rest[0] != ' ') {
			continue
		}
		value := strings.TrimSpace(rest)
		if value == "" {
			return "", "", false
		}
		if cmd == protocol.ChangeRoom && slugify {
			value = protocol.Slugify(value)
		}
		return cmd, value, true
	}
	return protocol.Message, line, true
}

func perform(c app.Commander, cmd protocol.Command, value string) error {
	switch cmd {
	case protocol.ChangeRoom:
		return c.RequestRoomChange(value)
	case protocol.SetName:
		return c.RequestNameChange(value)
	default:
		return c.SendChatMessage(value)
	}
}

// printer writes notifications as lines. Calls arrive from the session's
// single dispatcher goroutine, so writes never interleave.
func printer(w io.Writer) chat.NotifierFuncs {
	return chat.NotifierFuncs{
		OnJoined: func(room, userName string, rooms []string) {
			fmt.Fprintf(w, "* joined %s as %s (rooms: %s)\n", room, userName, strings.Join(rooms, ", "))
		},
		OnRoomsUpdated: func(rooms []string) {
			fmt.Fprintf(w, "* rooms: %s\n", strings.Join(rooms, ", "))
		},
		OnNameUpdated: func(userName string) {
			fmt.Fprintf(w, "* you are now %s\n", userName)
		},
		OnChatMessage: func(text, author string, foreign bool) {
			if !foreign {
				author = messages.OwnLabel
			}
			fmt.Fprintf(w, "%s: %s\n", author, text)
		},
		OnConnectionState: func(state chat.ConnectionState) {
			fmt.Fprintf(w, "* connection %s\n", state)
		},
	}
}
