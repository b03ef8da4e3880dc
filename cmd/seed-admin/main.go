package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/medstock/medstock-backend/internal/auth/events"
	"github.com/medstock/medstock-backend/internal/auth/jwt"
	"github.com/medstock/medstock-backend/internal/auth/repository"
	"github.com/medstock/medstock-backend/internal/auth/service"
	"github.com/medstock/medstock-backend/pkg/config"
	"github.com/medstock/medstock-backend/pkg/database"
	"github.com/medstock/medstock-backend/pkg/logger"
	"github.com/medstock/medstock-backend/pkg/messaging"
)

const serviceName = "seed-admin"

func main() {
	email := flag.String("email", "", "admin email to provision")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-admin -email admin@clinic.example")
		os.Exit(2)
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// Without a broker the voucher is printed for the operator to hand over
	var publisher *events.AuthEventPublisher
	if cfg.RabbitMQ.Enabled {
		rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewAuthEventPublisher(rmq, serviceName, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create auth event publisher")
		}
	}

	authService := service.NewAuthService(db, repository.NewAdminRepository(db), jwt.NewManager(&cfg.JWT), publisher, log)

	issued, err := authService.IssueVoucher(ctx, *email)
	if err != nil {
		log.Fatal().Err(err).Str("email", *email).Msg("failed to issue voucher")
	}

	if issued.Delivered {
		log.Info().Str("email", issued.Email).Msg("voucher issued and queued for delivery")
		return
	}

	log.Info().Str("email", issued.Email).Msg("voucher issued")
	fmt.Printf("voucher for %s: %s\n", issued.Email, issued.Voucher)
}
