package main

import (
	"context"
	"fmt"
	"strings"
)

// Run executes one request and exits. The exit status reflects the
// task outcome, which makes the command scriptable.
func (c *RunCmd) Run() error {
	rt, err := newRuntime(c.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	goal := strings.TrimSpace(strings.Join(c.Goal, " "))
	if goal == "" {
		return fmt.Errorf("empty request")
	}

	success := false
	for ev := range rt.eng.Submit(context.Background(), goal) {
		printEvent(ev)
		if ev.Terminal {
			success = ev.Success
		}
	}

	if !success {
		return fmt.Errorf("task did not complete successfully")
	}
	return nil
}
