package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/SUSTechPOINTS/boxeditor/internal/dispatcher"
	"github.com/SUSTechPOINTS/boxeditor/internal/util"
)

const quitCommand = ":QUIT:"

// commandName upper-cases name and adds the surrounding colons if they are missing,
// so "edit" and ":EDIT:" name the same command.
func commandName(name string) string {
	name = strings.ToUpper(util.Unquote(name))
	if !strings.HasPrefix(name, ":") {
		name = ":" + name
	}
	if !strings.HasSuffix(name, ":") {
		name += ":"
	}
	return name
}

// runConsole dispatches one command per input line and prints its result.
// Blank lines and lines starting with # are skipped.
func runConsole(ctx context.Context, d *dispatcher.Dispatcher, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args := util.SplitArgs(line)
		if len(args) == 0 {
			continue
		}

		command := commandName(args[0])
		if command == quitCommand {
			return nil
		}

		result, err := d.Dispatch(dispatcher.Event{Command: command, Args: args[1:]})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, result)
	}
	return scanner.Err()
}

func printResult(out io.Writer, result any) {
	switch v := result.(type) {
	case nil:
		fmt.Fprintln(out, "ok")
	case []string:
		fmt.Fprintln(out, strings.Join(v, " "))
	default:
		fmt.Fprintln(out, v)
	}
}
