package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gazolla/chatcli/internal/config"
	"github.com/gazolla/chatcli/internal/engine"
	"github.com/gazolla/chatcli/internal/mcp/catalog"
)

// runConsole reads user input line by line until EOF, /quit, or ctx
// cancellation. Lines starting with "/" are console commands; everything
// else goes to the engine.
func runConsole(ctx context.Context, eng *engine.Engine, cat *catalog.Catalog, cfg *config.Config) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	fmt.Print("> ")
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case strings.HasPrefix(line, "/"):
				if quit := runCommand(line, eng, cat, cfg); quit {
					return nil
				}
			default:
				answer, err := eng.ProcessQuery(ctx, line)
				if err != nil {
					fmt.Printf("error: %v\n", err)
				} else {
					fmt.Println(answer)
				}
			}
			fmt.Print("> ")
		}
	}
}

// runCommand dispatches one slash command. Returns true when the console
// should exit.
func runCommand(line string, eng *engine.Engine, cat *catalog.Catalog, cfg *config.Config) bool {
	cmd, _, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		printHelp()
	case "/tools":
		printTools(cat)
	case "/servers":
		printServers(cat, cfg)
	case "/history":
		printHistory(eng)
	case "/reset":
		eng.Reset()
		fmt.Println("Conversation history cleared.")
	default:
		fmt.Printf("Unknown command %s — try /help.\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Print(`Commands:
  /tools     list the tools currently available
  /servers   show tool server connection status
  /history   print the conversation so far
  /reset     clear the conversation history
  /help      show this help
  /quit      exit
`)
}

func printTools(cat *catalog.Catalog) {
	tools := cat.Tools()
	if len(tools) == 0 {
		fmt.Println("No tools are currently available.")
		return
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	for _, spec := range tools {
		fmt.Printf("  %s — %s\n", spec.Name, spec.Description)
	}
}

func printServers(cat *catalog.Catalog, cfg *config.Config) {
	if len(cfg.MCP.Servers) == 0 {
		fmt.Println("No tool servers configured.")
		return
	}
	toolCounts := make(map[string]int)
	for _, spec := range cat.Tools() {
		toolCounts[spec.Server]++
	}
	for _, srv := range cfg.MCP.Servers {
		status := cat.Status(srv.Name).String()
		if !srv.IsEnabled() {
			status = "disabled"
		}
		fmt.Printf("  %-20s %-13s %d tools\n", srv.Name, status, toolCounts[srv.Name])
	}
}

func printHistory(eng *engine.Engine) {
	history := eng.History()
	if len(history) == 0 {
		fmt.Println("No conversation yet.")
		return
	}
	for _, msg := range history {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
	}
}
