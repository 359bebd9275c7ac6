package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/zazer0/neuronpedia/internal/config"
	"github.com/zazer0/neuronpedia/internal/database"
	"github.com/zazer0/neuronpedia/internal/handler"
	"github.com/zazer0/neuronpedia/internal/middleware"
	"github.com/zazer0/neuronpedia/internal/queue"
	"github.com/zazer0/neuronpedia/internal/repository"
	"github.com/zazer0/neuronpedia/internal/router"
	"github.com/zazer0/neuronpedia/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	signer, err := storage.New(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	models := repository.NewModelRepo(db)
	neurons := repository.NewNeuronRepo(db)
	explanations := repository.NewExplanationRepo(db)
	votes := repository.NewVoteRepo(db)
	lists := repository.NewListRepo(db)
	bookmarks := repository.NewBookmarkRepo(db)
	comments := repository.NewCommentRepo(db)
	graphs := repository.NewGraphRepo(db)

	resolver := &middleware.Resolver{Secret: cfg.JWTSecret, Keys: tokens, Users: users}

	authH := handler.NewAuthHandler(cfg, users, tokens)
	browseH := handler.NewBrowseHandler(models, neurons, explanations, comments)
	explH := handler.NewExplanationHandler(explanations, neurons)
	voteH := handler.NewVoteHandler(votes)
	commentH := handler.NewCommentHandler(comments)
	listH := handler.NewListHandler(lists)
	bookmarkH := handler.NewBookmarkHandler(bookmarks)
	graphH := handler.NewGraphHandler(graphs, signer)
	adminH := handler.NewAdminHandler(models, explanations)

	e := echo.New()
	e.HideBanner = true

	// Identity resolution runs before the limiter so user-keyed rate
	// strategies see the caller, not one shared anonymous bucket.
	e.Use(resolver.OptionalUser())

	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, resolver)
	router.RegisterPublic(e, browseH, explH, graphH, cacheMW)
	router.RegisterUser(e, resolver, explH, voteH, commentH, listH, bookmarkH, graphH)
	router.RegisterAdmin(e, resolver, adminH)

	// Activity events are recorded out of band; the consumer reconnects on
	// its own if the broker drops.
	go queue.StartActivityConsumer()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
