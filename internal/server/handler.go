package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"chatapp/internal/auth"
	"chatapp/internal/config"
	"chatapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg        config.Config
	userSvc    *service.UserService
	channelSvc *service.ChannelService
	msgSvc     *service.MessageService
	contactSvc *service.ContactService
}

func NewHandler(cfg config.Config, userSvc *service.UserService, channelSvc *service.ChannelService, msgSvc *service.MessageService, contactSvc *service.ContactService) *Handler {
	return &Handler{cfg: cfg, userSvc: userSvc, channelSvc: channelSvc, msgSvc: msgSvc, contactSvc: contactSvc}
}

// Register 处理用户注册请求，成功后直接建立会话。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	result, err := h.userSvc.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	auth.SetAuthCookie(c, result.Token, h.cfg.Env)
	c.JSON(http.StatusOK, gin.H{"username": result.Username})
}

// Login 处理用户登录请求。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	result, err := h.userSvc.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	auth.SetAuthCookie(c, result.Token, h.cfg.Env)
	c.JSON(http.StatusOK, gin.H{"username": result.Username})
}

// Logout 清空会话并让 cookie 过期。
func (h *Handler) Logout(c *gin.Context) {
	user, ok := auth.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.userSvc.Logout(user.ID); err != nil {
		log.Error().Err(err).Uint("user_id", user.ID).Msg("logout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	auth.ClearAuthCookie(c, h.cfg.Env)
	c.Status(http.StatusNoContent)
}

// Check 返回当前会话对应的用户名。
func (h *Handler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": auth.GetUsername(c)})
}

// CreateChannel 处理创建频道请求。
func (h *Handler) CreateChannel(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name is required"})
		return
	}
	if len(req.Name) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel name"})
		return
	}
	channel, err := h.channelSvc.Create(req.Name, req.Description, auth.GetUsername(c))
	if err != nil {
		if errors.Is(err, service.ErrChannelNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "channel already exists"})
			return
		}
		log.Error().Err(err).Str("name", req.Name).Msg("create channel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}
	c.JSON(http.StatusOK, channel)
}

// ListChannels 返回全部频道。
func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.channelSvc.List()
	if err != nil {
		log.Error().Err(err).Msg("list channels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}
	c.JSON(http.StatusOK, channels)
}

// DeleteChannel 处理删除频道请求。
func (h *Handler) DeleteChannel(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	if err := h.channelSvc.Delete(uint(id)); err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		log.Error().Err(err).Int("channel_id", id).Msg("delete channel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete channel"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages 按创建时间升序返回频道内的消息。
func (h *Handler) ListMessages(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channelId"))
	if err != nil || channelID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	msgs, err := h.msgSvc.ListByChannel(uint(channelID))
	if err != nil {
		if errors.Is(err, service.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		log.Error().Err(err).Int("channel_id", channelID).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage 处理发送消息请求。
func (h *Handler) SendMessage(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channelId"))
	if err != nil || channelID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	msg, err := h.msgSvc.Create(uint(channelID), auth.GetUsername(c), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		case errors.Is(err, service.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		default:
			log.Error().Err(err).Int("channel_id", channelID).Msg("send message")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Contact 处理联系表单提交。
func (h *Handler) Contact(c *gin.Context) {
	var req struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.contactSvc.Submit(c.Request.Context(), req.Email, req.Name, req.Message); err != nil {
		if errors.Is(err, service.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
			return
		}
		log.Error().Err(err).Msg("contact form")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit form"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "form submitted"})
}
