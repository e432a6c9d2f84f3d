package protocal

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Deer-Spangle/hoardbooru-bot/configs"
	inputTelegram "github.com/Deer-Spangle/hoardbooru-bot/internal/adapters/input/telegram"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/adapters/output/sqlite"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/adapters/output/szurubooru"
	outputTelegram "github.com/Deer-Spangle/hoardbooru-bot/internal/adapters/output/telegram"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/application"
	"github.com/Deer-Spangle/hoardbooru-bot/internal/domain"
	database "github.com/Deer-Spangle/hoardbooru-bot/pkg/database_driver/gorm"
	"github.com/Deer-Spangle/hoardbooru-bot/pkg/validator"
)

type config struct {
	ENV string `mapstructure:"env"`
}

// ServeBot func
func ServeBot() error {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	var cfg config
	flag.StringVar(&cfg.ENV, "env", "", "the environment to use")
	flag.Parse()
	configs.InitViper("./configs", cfg.ENV)
	logrus.Info(configs.GetViper().Env)
	if err := validator.ValidateStruct(configs.GetViper()); err != nil {
		return err
	}
	if configs.GetViper().Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	db, err := openDatabase(configs.GetViper())
	if err != nil {
		return err
	}
	if err := domain.MigrateDatabase(db); err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPI(configs.GetViper().Telegram.BotToken)
	if err != nil {
		return err
	}
	logrus.Infof("Authorized as @%s", bot.Self.UserName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		for range c {
			log.Println("Gracefull shut down ...")
			cancel()
			err := app.Shutdown()
			if err != nil {
				log.Println("Error when shutdown server: ", err)
			}
		}
	}()

	// Wire up the hexagonal architecture layers
	// Output adapters (catalog, chat platform, cache store)
	catalog := szurubooru.NewClient(
		configs.GetViper().Hoardbooru.URL,
		configs.GetViper().Hoardbooru.Username,
		configs.GetViper().Hoardbooru.Token,
	)
	chat := outputTelegram.NewClient(bot)
	cacheRepo := sqlite.NewCacheRepository(db)

	// Application services (use cases)
	users := domain.NewTrustedUserSet(trustedUsers(configs.GetViper()))
	media := application.NewMediaCacheService(cacheRepo, catalog, chat, configs.GetViper().Telegram.CacheChannelID)
	popularity := application.NewPopularityCache(catalog, time.Duration(configs.GetViper().Cache.PopularityTTL)*time.Second)
	snapshots := application.NewUploadStateCache(catalog, time.Duration(configs.GetViper().Cache.UploadStateTTL)*time.Second)
	taggingSrv := application.NewTaggingService(catalog, chat, popularity)
	uploadSrv := application.NewUploadService(catalog, chat, media, taggingSrv)
	inlineSrv := application.NewInlineService(catalog, chat, media, configs.GetViper().Cache.MaxFreshMedia)
	unuploadedSrv := application.NewUnuploadedService(catalog, chat, snapshots)
	maintenanceSrv := application.NewMaintenanceService(catalog, chat, media)

	// Input adapter (update dispatcher)
	dispatcher := inputTelegram.NewDispatcher(bot, chat, users, taggingSrv, uploadSrv, inlineSrv, unuploadedSrv, maintenanceSrv)
	go dispatcher.Run(ctx)

	app.Get("/health", func(fc *fiber.Ctx) error {
		count, err := cacheRepo.Count(fc.Context())
		if err != nil {
			return fc.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return fc.JSON(fiber.Map{
			"status":        "ok",
			"cache_entries": count,
		})
	})

	err = app.Listen(":" + configs.GetViper().App.Port)
	if err != nil {
		return err
	}

	logrus.Println("Listerning on port: ", configs.GetViper().App.Port)
	return nil
}

// openDatabase connects to the configured cache store
func openDatabase(cfg *configs.Config) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return database.NewPostgresConnection(cfg.Database)
	default:
		return database.NewSqliteConnection(cfg.Database)
	}
}

// trustedUsers converts configured operators to the domain model
func trustedUsers(cfg *configs.Config) []domain.TrustedUser {
	users := make([]domain.TrustedUser, 0, len(cfg.TrustedUsers))
	for _, user := range cfg.TrustedUsers {
		users = append(users, domain.TrustedUser{
			TelegramID:     user.TelegramID,
			BlockedTags:    user.BlockedTags,
			OwnerTag:       user.OwnerTag,
			UploadTagInfix: user.UploadTagInfix,
		})
	}
	return users
}
