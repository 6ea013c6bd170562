package cli_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/quicio/cli"
)

func TestDemoCommandAcceptsLoopbackConnection(t *testing.T) {
	var buf bytes.Buffer
	prev := cli.Out
	cli.Out = &buf
	defer func() { cli.Out = prev }()

	cmd := cli.NewDemoCommand()
	cmd.SetContext(context.Background())
	if err := cmd.Flags().Set("duration", "2s"); err != nil {
		t.Fatalf("set duration: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.RunE(cmd, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("demo command failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("demo command did not finish in time")
	}

	if !strings.Contains(buf.String(), "server accepted connection") {
		t.Fatalf("expected acceptance message, got %q", buf.String())
	}
}

func TestRootCommandRegistersDemoSubcommand(t *testing.T) {
	root := cli.NewRootCommand()
	found := false
	for _, c := range root.Commands() {
		if c.Name() == "demo" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected root command to register the demo subcommand")
	}
}
