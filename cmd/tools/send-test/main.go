package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/oskarlindgren/valuebets/internal/notifier"
)

// One-shot smoke test: sends a single message through the real dispatcher
// so a channel and token can be verified before wiring them into config.
func main() {
	_ = godotenv.Load()

	var message string
	flag.StringVar(&message, "message", "Test message from valuebets notifier", "Message text to send")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: send-test [-message text] <chat_id>")
		os.Exit(2)
	}

	chatID, err := strconv.ParseInt(flag.Arg(0), 10, 64)
	if err != nil {
		log.Fatalf("invalid chat id %q: %v", flag.Arg(0), err)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	sender, err := notifier.NewTelegramSender(token)
	if err != nil {
		log.Fatalf("failed to initialize telegram sender: %v", err)
	}

	dispatcher := notifier.NewDispatcher(sender, notifier.DispatcherOptions{
		MaxRate:      20,
		RateInterval: time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sent := dispatcher.SendBatch(ctx, chatID, []string{message}); sent != 1 {
		log.Fatal("message was not delivered")
	}
	fmt.Println("message delivered")
}
