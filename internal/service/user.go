package service

import (
	"errors"

	"chatapp/internal/auth"
	"chatapp/internal/models"

	"gorm.io/gorm"
)

// UserService 封装注册、登录、注销相关的业务逻辑。
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// SessionResult 是注册/登录成功后下发给 handler 的会话数据。
type SessionResult struct {
	Username string
	Token    string
}

// Register 创建新用户并直接建立会话。
func (s *UserService) Register(username, password string) (*SessionResult, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	token := auth.NewSessionToken()
	user := models.User{Username: username, PasswordHash: hash, SessionToken: &token}
	if err := s.db.Create(&user).Error; err != nil {
		// 并发注册依赖唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &SessionResult{Username: user.Username, Token: token}, nil
}

// Login 校验用户名密码并轮换会话 token。
func (s *UserService) Login(username, password string) (*SessionResult, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	token := auth.NewSessionToken()
	if err := auth.SaveSessionToken(s.db, user.ID, token); err != nil {
		return nil, err
	}
	return &SessionResult{Username: user.Username, Token: token}, nil
}

// Logout 清空用户的会话 token，使 cookie 中的旧值失效。
func (s *UserService) Logout(userID uint) error {
	return auth.ClearSessionToken(s.db, userID)
}
