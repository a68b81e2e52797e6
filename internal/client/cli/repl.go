package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	UpdateDetails(ctx context.Context) error
	UpdateAvatar(ctx context.Context) error
	UpdateCover(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from scanner and dispatches them to a until the
// user types "exit" or "quit", input ends, or ctx is cancelled.
//
// Not logged in: help, register, login, exit.
// Logged in: help, whoami, refresh, passwd, update, avatar, cover, logout, exit.
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("rh> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		if a.isLoggedIn() {
			dispatchSecured(ctx, a, cmd)
		} else {
			dispatchGuest(ctx, a, cmd)
		}
	}
}

func dispatchGuest(ctx context.Context, a execIface, cmd string) {
	switch cmd {
	case "help":
		printlnFn("Available commands: register, login, exit")
	case "register":
		_ = a.Register(ctx)
	case "login":
		_ = a.Login(ctx)
	default:
		printlnFn("Unknown command:", cmd)
	}
}

func dispatchSecured(ctx context.Context, a execIface, cmd string) {
	switch cmd {
	case "help":
		printlnFn("Available commands: whoami, refresh, passwd, update, avatar, cover, logout, exit")
	case "whoami":
		_ = a.WhoAmI(ctx)
	case "refresh":
		_ = a.Refresh(ctx)
	case "passwd":
		_ = a.ChangePassword(ctx)
	case "update":
		_ = a.UpdateDetails(ctx)
	case "avatar":
		_ = a.UpdateAvatar(ctx)
	case "cover":
		_ = a.UpdateCover(ctx)
	case "logout":
		_ = a.Logout(ctx)
	default:
		printlnFn("Unknown command:", cmd)
	}
}
