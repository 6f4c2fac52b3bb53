package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chatapp/internal/auth"
	"chatapp/internal/config"
	"chatapp/internal/metrics"
	"chatapp/internal/mw"
	"chatapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, gdb *gorm.DB, hub *ws.Hub, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	// 控制单个 IP+路由的速率，避免公共部署被刷爆。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	// 需要会话 cookie 的业务接口。
	authed := api.Group("")
	authed.Use(auth.Middleware(gdb))

	authed.DELETE("/auth/logout", h.Logout)
	authed.GET("/auth/check", h.Check)

	authed.POST("/channel", h.CreateChannel)
	authed.GET("/channels", h.ListChannels)
	authed.DELETE("/channel/:id", h.DeleteChannel)

	authed.GET("/messages/:channelId", h.ListMessages)
	authed.POST("/messages/:channelId", h.SendMessage)

	authed.POST("/contact", h.Contact)

	// WebSocket 升级在 handler 内部校验会话 cookie。
	r.GET("/ws", ws.Serve(hub, gdb))

	// 前端构建产物存在时作为 SPA 回退提供静态服务。挂在 NoRoute
	// 上：根路径的 catch-all 会和已注册的 /api 等路由冲突，
	// gin 在注册时就会 panic。
	distDir := filepath.Join(".", "frontend", "dist")
	if _, err := os.Stat(filepath.Join(distDir, "index.html")); err == nil {
		r.NoRoute(spaFallback(distDir))
	}
	return r
}

// spaFallback 为未匹配任何路由的 GET 请求提供静态文件，
// 其余路径回退到 index.html 交给前端路由处理。
func spaFallback(distDir string) gin.HandlerFunc {
	index := filepath.Join(distDir, "index.html")
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusNotFound)
			return
		}
		rel := strings.TrimPrefix(filepath.Clean(c.Request.URL.Path), "/")
		// 未注册的 API 路径不回退到页面
		if rel == "api" || strings.HasPrefix(rel, "api/") {
			c.Status(http.StatusNotFound)
			return
		}
		if rel != "" {
			target := filepath.Join(distDir, rel)
			if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
				c.File(target)
				return
			}
			// 带扩展名的路径是缺失的静态资源，不是前端路由
			if strings.Contains(rel, ".") {
				c.Status(http.StatusNotFound)
				return
			}
		}
		c.File(index)
	}
}
