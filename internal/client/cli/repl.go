package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	UploadMIDI(ctx context.Context, recordingID, path string) error
}

// runREPL reads commands from scanner until EOF or "exit"/"quit".
//
//	Not logged in: help, register, login, exit
//	Logged in:     help, whoami, refresh, upload <recording-id> <file.mid>, logout, exit
//
// Handlers log their own errors; a failing command never ends the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("labandina %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, refresh, upload, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "whoami", "me":
			if err := a.WhoAmI(ctx); errors.Is(err, errNotLoggedIn) {
				printlnFn("Please log in first")
			}

		case "refresh":
			if err := a.Refresh(ctx); errors.Is(err, errNotLoggedIn) {
				printlnFn("Please log in first")
			}

		case "upload":
			if len(args) != 2 {
				printlnFn("Usage: upload <recording-id> <file.mid>")
				continue
			}
			if err := a.UploadMIDI(ctx, args[0], args[1]); errors.Is(err, errNotLoggedIn) {
				printlnFn("Please log in first")
			}

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
