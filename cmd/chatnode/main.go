// Command chatnode joins or starts a LAN chat session: zero configuration,
// one broadcast domain, one authoritative server elected among whoever
// shows up.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"lanchat/config"
	"lanchat/node"
	"lanchat/wire"
)

func main() {
	name := flag.String("name", "", "display name to register once connected")
	port := flag.Int("port", wire.DefaultPort, "shared TCP/UDP port for discovery, election and chat")
	useTUI := flag.Bool("tui", false, "run the terminal UI instead of the plain line-oriented CLI")
	flag.Parse()

	cfg := config.Default()
	cfg.Port = *port

	n := node.New(cfg)
	if *name != "" {
		if err := n.SetName(*name); err != nil {
			log.Fatalf("invalid -name: %v", err)
		}
	}

	if *useTUI {
		runTUI(n)
		return
	}
	runCLI(n)
}

func runCLI(n *node.Node) {
	n.OnMessageSaid(func(name, msg string) {
		fmt.Printf("%s: %s\n", name, msg)
	})
	n.Start()
	defer n.Close()

	fmt.Println("Commands: /name <newname>, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/name "):
			if err := n.SetName(strings.TrimPrefix(line, "/name ")); err != nil {
				fmt.Fprintln(os.Stderr, "name:", err)
			}
		default:
			if err := n.Say(line); err != nil {
				fmt.Fprintln(os.Stderr, "say:", err)
			}
		}
	}
}
