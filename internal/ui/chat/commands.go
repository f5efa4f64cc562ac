// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Arg  string
}

// Commands lists the slash commands with their help text.
var Commands = []struct {
	Usage string
	Help  string
}{
	{"/voice PATH", "send an audio file as a voice message"},
	{"/export [PATH]", "save the conversation (.md or .json)"},
	{"/help", "show this help"},
	{"/quit", "exit kare"},
}

// ParseCommand parses input starting with "/". The argument keeps inner
// spaces so paths with spaces work. ok is false for ordinary messages.
func ParseCommand(input string) (cmd Command, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(input[1:], " ")
	return Command{
		Name: strings.ToLower(name),
		Arg:  strings.Trim(strings.TrimSpace(arg), `"'`),
	}, true
}

// HelpText renders the command list.
func HelpText() string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, c := range Commands {
		sb.WriteString("  ")
		sb.WriteString(c.Usage)
		sb.WriteString(strings.Repeat(" ", 16-len(c.Usage)))
		sb.WriteString(c.Help)
		sb.WriteString("\n")
	}
	sb.WriteString("Audio files dropped into the voice folder are sent automatically.")
	return sb.String()
}
