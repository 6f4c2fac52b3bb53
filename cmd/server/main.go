package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatapp/internal/config"
	"chatapp/internal/db"
	clog "chatapp/internal/log"
	"chatapp/internal/server"
	"chatapp/internal/service"
	"chatapp/internal/ws"

	"github.com/rs/zerolog/log"
)

// main 按依赖顺序完成装配：配置、日志、数据库、hub、service、路由。
// 所有依赖先构造好再开始监听，请求不可能观察到未初始化的依赖。
func main() {
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	hub := ws.NewHub(time.Duration(cfg.PingIntervalSeconds) * time.Second)
	go hub.Run()

	userSvc := service.NewUserService(gdb)
	channelSvc := service.NewChannelService(gdb, hub)
	msgSvc := service.NewMessageService(gdb, hub)
	contactSvc := service.NewContactService(gdb, cfg.ResendAPIKey, cfg.ContactInbox)

	h := server.NewHandler(cfg, userSvc, channelSvc, msgSvc, contactSvc)
	r := server.SetupRouter(cfg, gdb, hub, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	// 先断开 WebSocket 连接，再收尾 HTTP 请求。
	hub.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
