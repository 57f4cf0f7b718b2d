package main

import (
	"os"

	"github.com/openclaw/instant-agent/internal/replay"
)

// Run replays a session log for forensic analysis.
func (c *ReplayCmd) Run() error {
	r := replay.New(os.Stdout, c.Verbose)

	// Use interactive pager when stdout is a TTY and not disabled
	if !c.NoPager && isTerminal(os.Stdout) {
		return r.ReplayFileInteractive(c.Session)
	}
	return r.ReplayFile(c.Session)
}
