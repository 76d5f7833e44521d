// cmd/tools/webhook-registrar/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/scheduling"
)

// subscribedEvents are the source events the webhook server consumes.
var subscribedEvents = []string{
	"appointment.scheduled",
	"appointment.rescheduled",
	"appointment.canceled",
}

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)

	// Create command flags
	target := createCmd.String("target", "", "Webhook target URL (defaults to scheduling.webhook_target from config)")

	// Delete command flags
	idDelete := deleteCmd.Int("id", 0, "Webhook ID to delete (omit to delete all registered webhooks)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	cache := scheduling.NewTypeCache(cfg.Redis, time.Duration(cfg.Scheduling.TypeCacheTTL)*time.Second, log)
	defer cache.Close()
	client := scheduling.NewClient(cfg.Scheduling, cache, log)

	ctx := context.Background()

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		webhooks, err := client.ListWebhooks(ctx)
		if err != nil {
			fmt.Printf("Error listing webhooks: %v\n", err)
			os.Exit(1)
		}
		if len(webhooks) == 0 {
			fmt.Println("No webhooks registered.")
			return
		}
		for _, wh := range webhooks {
			fmt.Printf("%d\t%s\t%s\t%s\n", wh.ID, wh.Event, wh.Target, wh.Status)
		}

	case "create":
		createCmd.Parse(os.Args[2:])
		targetURL := *target
		if targetURL == "" {
			targetURL = cfg.Scheduling.WebhookTarget
		}
		if targetURL == "" {
			fmt.Println("Error: no target URL; pass -target or set scheduling.webhook_target.")
			createCmd.Usage()
			os.Exit(1)
		}
		for _, event := range subscribedEvents {
			wh, err := client.CreateWebhook(ctx, event, targetURL)
			if err != nil {
				fmt.Printf("Error creating webhook for %s: %v\n", event, err)
				os.Exit(1)
			}
			fmt.Printf("Created webhook %d: %s -> %s\n", wh.ID, wh.Event, wh.Target)
		}

	case "delete":
		deleteCmd.Parse(os.Args[2:])
		if *idDelete != 0 {
			if err := client.DeleteWebhook(ctx, *idDelete); err != nil {
				fmt.Printf("Error deleting webhook %d: %v\n", *idDelete, err)
				os.Exit(1)
			}
			fmt.Printf("Deleted webhook %d\n", *idDelete)
			return
		}
		webhooks, err := client.ListWebhooks(ctx)
		if err != nil {
			fmt.Printf("Error listing webhooks: %v\n", err)
			os.Exit(1)
		}
		for _, wh := range webhooks {
			if err := client.DeleteWebhook(ctx, wh.ID); err != nil {
				fmt.Printf("Error deleting webhook %d: %v\n", wh.ID, err)
				os.Exit(1)
			}
			fmt.Printf("Deleted webhook %d: %s -> %s\n", wh.ID, wh.Event, wh.Target)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func help() {
	fmt.Println(`Usage: webhook-registrar <command> [flags]

Commands:
  list              List webhooks registered at the scheduling source
  create [-target]  Register webhooks for all consumed events
  delete [-id]      Delete one webhook by id, or all webhooks
  help              Show this help`)
}
