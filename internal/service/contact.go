package service

import (
	"context"
	"fmt"
	"strings"

	"chatapp/internal/models"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ContactService 保存联系表单，配置了 Resend 时同时转发邮件。
type ContactService struct {
	db    *gorm.DB
	mail  *resend.Client
	inbox string
}

func NewContactService(db *gorm.DB, apiKey, inbox string) *ContactService {
	s := &ContactService{db: db, inbox: inbox}
	if apiKey != "" {
		s.mail = resend.NewClient(apiKey)
	}
	return s
}

// Submit 校验并保存表单；邮件转发尽力而为，失败只记日志。
func (s *ContactService) Submit(ctx context.Context, email, name, message string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(name) == "" || strings.TrimSpace(message) == "" {
		return ErrMissingFields
	}
	form := models.ContactForm{Email: email, Name: name, Message: message}
	if err := s.db.Create(&form).Error; err != nil {
		return err
	}
	if s.mail == nil {
		return nil
	}
	params := &resend.SendEmailRequest{
		From:    "chatapp <onboarding@resend.dev>",
		To:      []string{s.inbox},
		Subject: fmt.Sprintf("Contact form from %s", name),
		Text:    fmt.Sprintf("From: %s <%s>\n\n%s", name, email, message),
	}
	if _, err := s.mail.Emails.SendWithContext(ctx, params); err != nil {
		log.Error().Err(err).Str("email", email).Msg("forward contact form")
	}
	return nil
}
