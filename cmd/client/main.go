package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"chatapp/internal/client"
)

// 终端聊天客户端：登录后进入 REPL，斜杠命令管理频道，
// 普通输入发送到当前频道，广播到达时实时打印。
func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	register := flag.Bool("register", false, "register a new account instead of logging in")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: client -user NAME -pass SECRET [-register] [-server URL]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, err := client.New(*server)
	if err != nil {
		fatal(err)
	}
	if *register {
		err = api.Register(ctx, *username, *password)
	} else {
		err = api.Login(ctx, *username, *password)
	}
	if err != nil {
		fatal(err)
	}

	store := client.NewStore(api)
	printer := &printer{store: store}
	store.OnChange = printer.onChange

	if err := store.LoadChannels(ctx); err != nil {
		fatal(err)
	}
	conn, err := api.DialEvents(ctx)
	if err != nil {
		fatal(err)
	}
	go func() {
		if err := store.Listen(ctx, conn); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "event stream closed: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("connected as %s: /channels /join <id> /create <name> /delete <id> /quit\n", *username)
	printChannels(store)

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == "/quit":
			_ = api.Logout(ctx)
			return
		case line == "/channels":
			printChannels(store)
		case strings.HasPrefix(line, "/join "):
			id := parseID(strings.TrimPrefix(line, "/join "))
			if err := store.SelectChannel(ctx, id); err != nil {
				fmt.Println("!", err)
			}
		case strings.HasPrefix(line, "/create "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/create "))
			if err := store.CreateChannel(ctx, name, ""); err != nil {
				fmt.Println("!", err)
			}
		case strings.HasPrefix(line, "/delete "):
			id := parseID(strings.TrimPrefix(line, "/delete "))
			if err := store.DeleteChannel(ctx, id); err != nil {
				fmt.Println("!", err)
			}
		default:
			if err := store.SendMessage(ctx, store.CurrentChat(), line); err != nil {
				fmt.Println("!", err)
			}
		}
	}
}

// printer 跟踪已打印的消息数，OnChange 时只补打当前频道的新消息。
type printer struct {
	mu      sync.Mutex
	store   *client.Store
	lastCh  uint
	printed int
}

func (p *printer) onChange() {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.store.CurrentChat()
	if current == 0 {
		p.lastCh = 0
		p.printed = 0
		return
	}
	if current != p.lastCh {
		p.lastCh = current
		p.printed = 0
	}
	msgs := p.store.Messages(current)
	for _, m := range msgs[min(p.printed, len(msgs)):] {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.Sender, m.Content)
	}
	p.printed = len(msgs)
}

func printChannels(store *client.Store) {
	current := store.CurrentChat()
	for _, ch := range store.Channels() {
		marker := " "
		if ch.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s  (%d members)\n", marker, ch.ID, ch.Name, len(ch.Members))
	}
}

func parseID(s string) uint {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	if v < 0 {
		return 0
	}
	return uint(v)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
