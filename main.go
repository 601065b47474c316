package main

import (
	"github.com/cppla/simpleblog/config"
	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/repository"
	"github.com/cppla/simpleblog/routes"
	"github.com/cppla/simpleblog/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db, err := config.OpenDatabase(cfg, &models.User{}, &models.Post{})
	if err != nil {
		utils.Sugar.Fatalf("open database: %v", err)
	}

	// Redis is optional: without it revocations stay in memory and post pages are not cached
	rc := utils.NewRedis(cfg)

	r, err := routes.SetupRouter(routes.Deps{
		Config:    cfg,
		DB:        db,
		Users:     repository.NewUserRepository(db),
		Posts:     repository.NewPostRepository(db, utils.NewCache(rc, cfg.CacheTTL())),
		Hasher:    utils.NewPasswordHasher(cfg.BcryptCost),
		Tokens:    utils.NewTokenService(cfg.JWTSecret),
		Blacklist: utils.NewTokenBlacklist(rc),
	})
	if err != nil {
		utils.Sugar.Fatalf("setup router: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
