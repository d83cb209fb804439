package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Profiles(ctx context.Context) error
	SetRole(ctx context.Context, args []string) error

	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Images(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	RemoveImage(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
}

const (
	helpSignedOut = "Available commands: register, login, exit"
	helpSignedIn  = `Available commands:
  (l)ist [active|upcoming]   show <id>   add   edit <id>   note <id>   delete <id>
  images <id>   upload <id> <file>   rmimage <image-id>
  import <file>   export [dir]
  whoami   profiles   role <user-id> <role>   logout   exit`
)

// runREPL reads commands line by line from in and dispatches them to a.
// The loop exits on EOF, on "exit"/"quit", or when ctx is cancelled.
// Command errors are printed and never stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(out, "ck %s> ", statusFn())
		line, err := readLine(in)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(out, "Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				fmt.Fprintln(out, helpSignedIn)
			} else {
				fmt.Fprintln(out, helpSignedOut)
			}
			continue
		}

		if err := dispatch(ctx, a, cmd, args); err != nil {
			fmt.Fprintln(out, "error:", describeErr(err))
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		if isKnownCommand(cmd) {
			return errNotSignedIn
		}
		return fmt.Errorf("unknown command: %s", cmd)
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.Whoami(ctx)
	case "profiles":
		return a.Profiles(ctx)
	case "role":
		return a.SetRole(ctx, args)
	case "l", "list":
		return a.List(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "add":
		return a.Add(ctx)
	case "edit":
		return a.Edit(ctx, args)
	case "note":
		return a.Note(ctx, args)
	case "delete":
		return a.Delete(ctx, args)
	case "images":
		return a.Images(ctx, args)
	case "upload":
		return a.Upload(ctx, args)
	case "rmimage":
		return a.RemoveImage(ctx, args)
	case "import":
		return a.Import(ctx, args)
	case "export":
		return a.Export(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func isKnownCommand(cmd string) bool {
	switch cmd {
	case "logout", "whoami", "profiles", "role", "l", "list", "show", "add", "edit",
		"note", "delete", "images", "upload", "rmimage", "import", "export":
		return true
	}
	return false
}
