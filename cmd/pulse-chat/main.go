// Command pulse-chat is an interactive Pulse hub client.
//
// It connects to a hub, prints every inbound payload, and sends each
// input line as one frame.
//
// Usage:
//
//	pulse-chat -url https://hub.example.com/pulse
//	pulse-chat -config client.yaml -protocol-log session.plog
//
// Commands inside the session:
//
//	/state    show the connection state
//	/id       show the connection ID
//	/quit     disconnect and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/pulse-protocol/pulse-go/pkg/client"
	"github.com/pulse-protocol/pulse-go/pkg/connection"
	"github.com/pulse-protocol/pulse-go/pkg/log"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		hubURL      = flag.String("url", "", "hub endpoint URL (overrides config)")
		protocolLog = flag.String("protocol-log", "", "write protocol events to this file")
		insecure    = flag.Bool("insecure", false, "skip TLS certificate verification")
		timeout     = flag.Duration("timeout", 30*time.Second, "connect timeout")
	)
	flag.Parse()

	if err := run(*configPath, *hubURL, *protocolLog, *insecure, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "pulse-chat: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, hubURL, protocolLog string, insecure bool, timeout time.Duration) error {
	cfg := client.DefaultConfig()
	if configPath != "" {
		loaded, err := client.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if hubURL != "" {
		cfg.HubURL = hubURL
	}
	if insecure {
		cfg.InsecureSkipVerify = true
	}

	var logger log.Logger = log.NoopLogger{}
	if protocolLog != "" {
		fileLogger, err := log.NewFileLogger(protocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fileLogger.Close()
		logger = fileLogger
	}

	c, err := client.New(cfg, logger)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pulse> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	// Print through readline so output doesn't mangle the prompt.
	c.OnReceived(func(data []byte) {
		fmt.Fprintf(rl.Stdout(), "<< %s\n", data)
	})
	c.OnError(func(err error) {
		fmt.Fprintf(rl.Stderr(), "!! %v\n", err)
	})
	c.OnStateChange(func(oldState, newState connection.State) {
		fmt.Fprintf(rl.Stdout(), "-- %s -> %s\n", oldState, newState)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err = c.Start(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer c.Stop()

	fmt.Fprintf(rl.Stdout(), "connected (%s), /quit to exit\n", c.ConnectionID())

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/state":
			fmt.Fprintf(rl.Stdout(), "%s\n", c.State())
		case line == "/id":
			fmt.Fprintf(rl.Stdout(), "%s\n", c.ConnectionID())
		default:
			if err := c.Send(line); err != nil {
				fmt.Fprintf(rl.Stderr(), "!! send: %v\n", err)
			}
		}
	}
}
