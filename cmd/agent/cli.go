// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Chat    ChatCmd    `cmd:"" help:"Start an interactive conversation"`
	Run     RunCmd     `cmd:"" help:"Execute a single request and exit"`
	Mem     MemCmd     `cmd:"" help:"Inspect or reset execution memory"`
	Replay  ReplayCmd  `cmd:"" help:"Replay a session for forensic analysis"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// ChatCmd runs the interactive conversation loop.
type ChatCmd struct {
	Config string `help:"Config file path"`
}

// RunCmd executes one request non-interactively.
type RunCmd struct {
	Goal   []string `arg:"" help:"The request to execute"`
	Config string   `help:"Config file path"`
}

// MemCmd inspects or resets execution memory.
type MemCmd struct {
	Show  MemShowCmd  `cmd:"" default:"1" help:"Show learned patterns and task history"`
	Reset MemResetCmd `cmd:"" help:"Clear all learned patterns and history"`
}

// MemShowCmd prints learned patterns and task history.
type MemShowCmd struct {
	Config string `help:"Config file path"`
	JSON   bool   `help:"Emit raw JSON instead of formatted output"`
}

// MemResetCmd clears execution memory.
type MemResetCmd struct {
	Config string `help:"Config file path"`
}

// ReplayCmd replays a session log.
type ReplayCmd struct {
	Session string `arg:"" help:"Session file to replay"`
	Verbose int    `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
	NoPager bool   `help:"Disable pager for output"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
