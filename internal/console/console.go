// Package console provides an interactive operator REPL over the sync
// service façade, issuing the same six operations a tray menu would.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/hazyhaar/ggsync/internal/service"
)

// Console is a readline-backed REPL wrapping a Service.
type Console struct {
	svc *service.Service
	rl  *readline.Instance
}

// New creates a Console reading operator commands from stdin.
func New(svc *service.Service, historyFile string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mggsync>\033[0m ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("readline: %w", err)
	}
	return &Console{svc: svc, rl: rl}, nil
}

// Run reads commands until EOF or "exit", printing each one's rendered
// result. It does not return an error for a clean EOF.
func (c *Console) Run(ctx context.Context) error {
	defer c.rl.Close()

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line == "exit" || line == "quit" {
			return nil
		}

		c.dispatch(ctx, line)
	}
}

func (c *Console) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "sync":
		fmt.Println(c.svc.SyncNow(ctx))
	case "push":
		fmt.Println(c.svc.PushNow(ctx))
	case "pull":
		fmt.Println(c.svc.PullNow(ctx))
	case "backups":
		fmt.Println(c.svc.ListBackups())
	case "config":
		fmt.Println(c.svc.GetConfig())
	case "restore":
		if len(fields) != 2 {
			fmt.Println("usage: restore <backup-name>")
			return
		}
		fmt.Println(c.svc.RestoreBackup(fields[1]))
	case "help":
		c.printHelp()
	default:
		fmt.Printf("unknown command %q, type \"help\" for the list\n", cmd)
	}
}

func (c *Console) printHelp() {
	fmt.Println(`ggsync operator console
  sync              reconcile local and remote state
  push              push the local configuration to the remote
  pull              pull the remote configuration to local
  backups           list retained backups
  config            show the active configuration
  restore <name>    restore a named backup over local
  exit              leave the console`)
}
