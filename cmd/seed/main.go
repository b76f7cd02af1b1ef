package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/plume-sante/community-backend/internal/bodycodec"
	"github.com/plume-sante/community-backend/internal/config"
	"github.com/plume-sante/community-backend/internal/db"
	"github.com/plume-sante/community-backend/internal/model"
	"github.com/plume-sante/community-backend/internal/repository"
	"github.com/plume-sante/community-backend/internal/service"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := gdb.AutoMigrate(
		&model.Person{},
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.MessageReaction{},
		&model.Notification{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	canSeed, err := shouldSeed(gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("people already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	codec, err := bodycodec.New(cfg.MessageKey)
	if err != nil {
		return fmt.Errorf("message key: %w", err)
	}

	personRepo := repository.NewPersonRepository(gdb)
	convRepo := repository.NewConversationRepository(gdb)
	memberRepo := repository.NewMemberRepository(gdb)
	msgRepo := repository.NewMessageRepository(gdb)

	pseudos := []string{"marie_l", "jb_runner", "sophie.k", "thomas75", "anne_claire"}
	people := make([]*model.Person, 0, len(pseudos))
	for _, ps := range pseudos {
		p := &model.Person{Pseudo: ps}
		if err := personRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("create person %q: %w", ps, err)
		}
		people = append(people, p)
	}

	convSvc := service.NewConversationService(gdb, convRepo, memberRepo, nil)
	msgSvc := service.NewMessageService(gdb, msgRepo, convRepo, memberRepo, personRepo, codec, nil)

	direct, err := convSvc.GetOrCreateDirect(ctx, people[0].ID, people[1].ID, nil)
	if err != nil {
		return fmt.Errorf("direct conversation: %w", err)
	}
	for _, body := range []string{
		"Hello! How did the new treatment go this week?",
		"Better than expected, fewer side effects so far.",
	} {
		sender := people[0].ID
		if strings.HasPrefix(body, "Better") {
			sender = people[1].ID
		}
		if _, err := msgSvc.Post(ctx, direct.ID, sender, body, nil, false); err != nil {
			return fmt.Errorf("post message: %w", err)
		}
	}

	group, err := convSvc.CreateGroup(ctx, people[2].ID,
		[]uint64{people[3].ID, people[4].ID}, "Tuesday support circle", true)
	if err != nil {
		return fmt.Errorf("group conversation: %w", err)
	}
	if _, err := msgSvc.Post(ctx, group.ID, people[2].ID, "Welcome everyone, same time next Tuesday?", nil, false); err != nil {
		return fmt.Errorf("post group message: %w", err)
	}

	log.Printf("seeded %d people, 2 conversations", len(people))
	return nil
}

func shouldSeed(gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.Model(&model.Person{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count people: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
