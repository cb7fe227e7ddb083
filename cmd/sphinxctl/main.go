package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sphinx-chat/sphinxd/internal/api"
	"github.com/sphinx-chat/sphinxd/internal/daemon"
	"github.com/sphinx-chat/sphinxd/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	accountFlag := flag.String("account", "", "account name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	accountName := session.Resolve(*accountFlag)
	if err := session.ValidateName(accountName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		cmdStatus(accountName, *jsonFlag)
	case "chats":
		cmdChats(accountName, *jsonFlag)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: sphinxctl send <chat-id> <text>")
			os.Exit(1)
		}
		cmdSend(accountName, *jsonFlag, args[1], strings.Join(args[2:], " "))
	case "read":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: sphinxctl read <chat-id>")
			os.Exit(1)
		}
		cmdRead(accountName, *jsonFlag, args[1])
	case "player":
		cmdPlayer(accountName, *jsonFlag)
	case "accounts":
		if len(args) >= 2 && args[1] == "list" {
			cmdAccountsList(*jsonFlag)
		} else {
			fmt.Fprintln(os.Stderr, "usage: sphinxctl accounts list")
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: sphinxctl [--account <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status              Show daemon health for the account")
	fmt.Fprintln(os.Stderr, "  chats               List conversations")
	fmt.Fprintln(os.Stderr, "  send <chat> <text>  Queue a text message for delivery")
	fmt.Fprintln(os.Stderr, "  read <chat>         Mark a conversation read")
	fmt.Fprintln(os.Stderr, "  player              Show playback state")
	fmt.Fprintln(os.Stderr, "  accounts list       List known accounts")
}

// dial connects to the account daemon and returns an API client.
func dial(accountName string) (*api.Client, func()) {
	socketPath := session.SocketPath(accountName)
	conn, err := grpc.NewClient("unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for account %q: %v\n", accountName, err)
		os.Exit(1)
	}
	return api.NewClient(conn), func() { _ = conn.Close() }
}

func parseChatID(arg string) int64 {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid chat id %q\n", arg)
		os.Exit(1)
	}
	return id
}

func cmdChats(accountName string, jsonOut bool) {
	client, closeConn := dial(accountName)
	defer closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.ListChats(ctx, 0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(resp.Chats)
		return
	}
	if len(resp.Chats) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, c := range resp.Chats {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("chat %d", c.ID)
		}
		fmt.Printf("%-6d %-24s %s\n", c.ID, name, c.LastMessagePreview)
	}
}

func cmdSend(accountName string, jsonOut bool, chatArg, text string) {
	client, closeConn := dial(accountName)
	defer closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.SendText(ctx, parseChatID(chatArg), text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Queued: %s\n", resp.ClientMsgID)
}

func cmdRead(accountName string, jsonOut bool, chatArg string) {
	client, closeConn := dial(accountName)
	defer closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.MarkChatRead(ctx, parseChatID(chatArg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Marked %d messages read\n", len(resp.MessageIDs))
}

func cmdPlayer(accountName string, jsonOut bool) {
	client, closeConn := dial(accountName)
	defer closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.PlayerState(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("State: %s\n", resp.State)
	if resp.Session != nil {
		fmt.Printf("Episode: %s (%d/%ds at %.2fx)\n",
			resp.Session.EpisodeID, resp.Session.CurrentTime, resp.Session.Duration, resp.Session.Speed)
	}
}

func cmdStatus(accountName string, jsonOut bool) {
	socketPath := session.SocketPath(accountName)
	conn, err := grpc.NewClient("unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for account %q: %v\n", accountName, err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: daemon.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: daemon not reachable for account %q: %v\n", accountName, err)
		os.Exit(1)
	}

	if jsonOut {
		outputJSON(map[string]string{
			"account": accountName,
			"status":  resp.Status.String(),
		})
		return
	}
	fmt.Printf("Account: %s\n", accountName)
	fmt.Printf("Status:  %s\n", resp.Status)
}

func cmdAccountsList(jsonOut bool) {
	accountsDir := filepath.Join(session.BaseDir(), "accounts")
	entries, err := os.ReadDir(accountsDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No accounts found.")
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	type accountInfo struct {
		Name    string `json:"name"`
		Path    string `json:"path"`
		Running bool   `json:"running"`
	}
	var accounts []accountInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		_, err := os.Stat(session.SocketPath(name))
		accounts = append(accounts, accountInfo{
			Name:    name,
			Path:    session.Dir(name),
			Running: err == nil,
		})
	}

	if jsonOut {
		outputJSON(accounts)
		return
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return
	}
	for _, a := range accounts {
		running := "stopped"
		if a.Running {
			running = "running"
		}
		fmt.Printf("%-20s %s (%s)\n", a.Name, a.Path, running)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
