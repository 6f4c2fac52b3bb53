package auth

import (
	"errors"
	"net/http"

	"chatapp/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CookieName 是承载会话 token 的 httpOnly cookie 名称。
const CookieName = "token"

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NewSessionToken 生成不透明的会话 token。
func NewSessionToken() string {
	return uuid.NewString()
}

// SaveSessionToken 把新 token 写入用户记录，登录/注册时轮换。
func SaveSessionToken(db *gorm.DB, userID uint, token string) error {
	return db.Model(&models.User{}).Where("id = ?", userID).Update("session_token", &token).Error
}

// ClearSessionToken 注销时清空用户的会话 token。
func ClearSessionToken(db *gorm.DB, userID uint) error {
	return db.Model(&models.User{}).Where("id = ?", userID).Update("session_token", nil).Error
}

// UserByToken 根据会话 token 查找用户，token 无效返回 error。
func UserByToken(db *gorm.DB, token string) (*models.User, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	var user models.User
	if err := db.Where("session_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetAuthCookie 下发会话 cookie；prod 环境要求 HTTPS。
func SetAuthCookie(c *gin.Context, token, env string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, token, 0, "/", "", env == "prod", true)
}

// ClearAuthCookie 让会话 cookie 立即过期。
func ClearAuthCookie(c *gin.Context, env string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, "", -1, "/", "", env == "prod", true)
}

// TokenFromRequest 从请求 cookie 中提取会话 token，不存在返回空串。
func TokenFromRequest(r *http.Request) string {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Middleware 校验会话 cookie 并把用户注入请求上下文。
func Middleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := UserByToken(db, TokenFromRequest(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("user", *user)
		c.Next()
	}
}

// GetUser 取出 Middleware 注入的用户。
func GetUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get("user")
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

// GetUsername 返回当前登录用户名，未登录返回空串。
func GetUsername(c *gin.Context) string {
	user, ok := GetUser(c)
	if !ok {
		return ""
	}
	return user.Username
}
