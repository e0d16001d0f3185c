// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is a node in the shipwright command tree. A group has
// Subcommands; a leaf has Run. A node with both runs Run when the first
// argument names no subcommand.
type Command struct {
	// Name is the word typed to select the command ("delta", "build").
	Name string

	// Summary is the one-line description in the parent's listing.
	Summary string

	// Description is the full text of the command's own help.
	Description string

	// Usage overrides the synthesized usage line.
	Usage string

	Examples []Example

	// Flags builds the command's flag set. It is called for every parse
	// and every help request, so it must return a fresh set bound to
	// the command's parameter struct.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	Run func(args []string) error

	// HelpOutput receives help text. Nil inherits the parent's, and
	// the root defaults to os.Stderr.
	HelpOutput io.Writer

	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// UsageError is a malformed invocation: an unknown command or flag, or
// a missing subcommand. It exits with ExitUsage.
type UsageError struct {
	// Command is the full path of the command that rejected the
	// arguments.
	Command string
	Message string

	// Suggestion is the closest valid spelling, if one is close enough.
	Suggestion string
}

func (e *UsageError) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&builder, " (did you mean %s?)", e.Suggestion)
	}
	fmt.Fprintf(&builder, "\n\nRun '%s --help' for usage.", e.Command)
	return builder.String()
}

// Execute dispatches args through the tree and runs the selected
// command.
func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if len(c.Subcommands) > 0 {
		if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			if sub := c.subcommand(args[0]); sub != nil {
				sub.parent = c
				return sub.Execute(args[1:])
			}
			if c.Run == nil {
				return c.usageError(fmt.Sprintf("unknown command %q", args[0]),
					quoteSuggestion(suggestCommand(args[0], c.Subcommands)))
			}
		}
		if c.Run == nil {
			c.PrintHelp(c.helpOutput())
			if len(args) == 0 {
				return c.usageError("subcommand required", "")
			}
			return c.usageError(fmt.Sprintf("subcommand required (got flag %q)", args[0]), "")
		}
	}

	positional, err := c.parseFlags(args)
	if err != nil {
		return err
	}
	if c.Run == nil {
		c.PrintHelp(c.helpOutput())
		return fmt.Errorf("no action defined for %q", c.fullName())
	}
	return c.Run(positional)
}

func (c *Command) subcommand(name string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// parseFlags parses args against the command's flag set and returns the
// positional arguments. pflag's own error output is discarded in favor
// of a UsageError carrying a suggestion.
func (c *Command) parseFlags(args []string) ([]string, error) {
	if c.Flags == nil {
		return args, nil
	}
	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)
	if err := flagSet.Parse(args); err != nil {
		message := err.Error()
		var suggestion string
		if strings.HasPrefix(message, "unknown flag") || strings.HasPrefix(message, "unknown shorthand flag") {
			// The failed parse may have bound values; look up
			// suggestions on a fresh set.
			suggestion = suggestFlag(args, c.Flags())
		}
		return nil, c.usageError(message, suggestion)
	}
	return flagSet.Args(), nil
}

func (c *Command) usageError(message, suggestion string) *UsageError {
	return &UsageError{Command: c.fullName(), Message: message, Suggestion: suggestion}
}

func quoteSuggestion(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("%q", name)
}

// PrintHelp writes the command's help to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	switch {
	case c.Description != "":
		fmt.Fprintf(w, "%s\n\n", c.Description)
	case c.Summary != "":
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	usage := c.Usage
	if usage == "" {
		usage = name + " [flags]"
		if len(c.Subcommands) > 0 {
			usage = name + " <command> [flags]"
		}
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		if flags := c.Flags().FlagUsages(); flags != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", flags)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description == "" {
				fmt.Fprintf(w, "  %s\n", example.Command)
				continue
			}
			fmt.Fprintf(w, "  # %s\n  %s\n\n", example.Description, example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.HelpOutput != nil {
			return command.HelpOutput
		}
	}
	return os.Stderr
}

// fullName is the command path from the root, e.g. "shipwright delta
// generate".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	}
	return false
}
