// Command notifycheck sends one message through the configured notifier and
// optionally prints a bearer token for manual API calls.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/park285/cheese-chess/internal/chessbuilder"
	appcfg "github.com/park285/cheese-chess/internal/config"
	"github.com/park285/cheese-chess/internal/obslog"
)

func main() {
	to := flag.String("to", "", "recipient player id")
	msg := flag.String("msg", "notifycheck ping", "message text")
	tokenFor := flag.String("token-for", "", "print a bearer token for this player id")
	tokenName := flag.String("token-name", "", "display name claim for -token-for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	deps, err := chessbuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer deps.Close()

	if *tokenFor != "" {
		tok, err := deps.Resolver.Issue(*tokenFor, *tokenName, *ttl)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(tok)
	}

	if *to == "" {
		if *tokenFor == "" {
			log.Println("-to not set; nothing to send")
		}
		return
	}
	if err := deps.Notifier.Notify(ctx, *to, *msg); err != nil {
		log.Fatalf("notify %s (mode=%s): %v", *to, cfg.NotifyMode, err)
	}
	log.Printf("notify ok: to=%s mode=%s", *to, cfg.NotifyMode)
}
