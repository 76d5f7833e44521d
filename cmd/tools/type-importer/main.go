// cmd/tools/type-importer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"interview-notifier/internal/appointments"
	"interview-notifier/internal/common/aws"
	"interview-notifier/internal/common/config"
	"interview-notifier/internal/common/logger"
	"interview-notifier/internal/directory"
	"interview-notifier/internal/scheduling"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "List the types that would be imported without writing anything")
	includeInactive := flag.Bool("include-inactive", false, "Also import types marked inactive at the source")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	ctx := context.Background()

	store, err := aws.NewStoreClient(ctx, cfg.AWS.Region)
	if err != nil {
		fmt.Printf("Error initializing store client: %v\n", err)
		os.Exit(1)
	}

	cache := scheduling.NewTypeCache(cfg.Redis, time.Duration(cfg.Scheduling.TypeCacheTTL)*time.Second, log)
	defer cache.Close()
	source := scheduling.NewClient(cfg.Scheduling, cache, log)
	dir := directory.NewClient(cfg.Directory, log)

	// The importer never sends team email, so no mailer is wired.
	svc := appointments.NewService(store, source, dir, nil, cfg, log)

	types, err := source.GetAppointmentTypes(ctx)
	if err != nil {
		fmt.Printf("Error fetching appointment types: %v\n", err)
		os.Exit(1)
	}

	var created, updated, skipped int
	for _, src := range types {
		if !src.Active && !*includeInactive {
			skipped++
			continue
		}
		if *dryRun {
			fmt.Printf("Would import %d: %s (%s)\n", src.ID, src.Name, src.Category)
			continue
		}
		isNew, err := svc.ImportSourceType(ctx, src)
		if err != nil {
			fmt.Printf("Error importing type %d (%s): %v\n", src.ID, src.Name, err)
			os.Exit(1)
		}
		if isNew {
			created++
			fmt.Printf("Created %d: %s (%s) - review has_link/send_notifications before use\n", src.ID, src.Name, src.Category)
		} else {
			updated++
			fmt.Printf("Updated %d: %s (%s)\n", src.ID, src.Name, src.Category)
		}
	}

	// Imported names and categories supersede whatever the cache holds.
	cache.Invalidate(ctx)

	fmt.Printf("Done: %d created, %d updated, %d skipped.\n", created, updated, skipped)
}
