package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"event-keyword-monitor/internal/config"
	"event-keyword-monitor/internal/domain/model"
	"event-keyword-monitor/internal/domain/ports/repository"
	pg "event-keyword-monitor/internal/infra/db/postgres"

	"github.com/google/uuid"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	subRepo := pg.NewSubscriptionRepo(pool)
	itemRepo := pg.NewWorkItemRepo(pool)

	// If subscriptions already exist, do nothing
	subs, err := subRepo.ListActive(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) > 0 {
		fmt.Printf("%d active subscriptions already present. No changes.\n", len(subs))
		for _, s := range subs {
			fmt.Printf("  - user=%s channel=%s keywords=%v\n", s.UserID, s.Channel, s.Keywords)
		}
		return
	}

	seedSubs := []*model.Subscription{
		{
			ID:          uuid.NewString(),
			UserID:      "demo-alice",
			Channel:     model.ChannelTelegram,
			Destination: "100000001",
			Keywords:    []string{"AI", "machine learning"},
			Active:      true,
		},
		{
			ID:          uuid.NewString(),
			UserID:      "demo-bob",
			Channel:     model.ChannelEmail,
			Destination: "bob@example.com",
			Keywords:    []string{"music", "festival"},
			Active:      true,
		},
	}
	for _, s := range seedSubs {
		if err := subRepo.Save(ctx, repository.NoTX, s); err != nil {
			log.Fatalf("save subscription for %q: %v", s.UserID, err)
		}
		fmt.Printf("seeded subscription: user=%s channel=%s keywords=%v\n", s.UserID, s.Channel, s.Keywords)
	}

	today := time.Now().Truncate(24 * time.Hour)
	seedItems := []*model.WorkItem{
		{ID: uuid.NewString(), Title: "AI Conference 2026", StartsOn: today.AddDate(0, 0, 7)},
		{ID: uuid.NewString(), Title: "Summer Music Festival", StartsOn: today.AddDate(0, 0, 14)},
		{ID: uuid.NewString(), Title: "City Marathon", StartsOn: today.AddDate(0, 0, 21)},
	}
	for _, it := range seedItems {
		if err := itemRepo.Save(ctx, repository.NoTX, it); err != nil {
			log.Fatalf("save work item %q: %v", it.Title, err)
		}
		fmt.Printf("seeded work item: %s (starts %s)\n", it.Title, it.StartsOn.Format("2006-01-02"))
	}

	fmt.Println("✅ Seeding complete.")
}
