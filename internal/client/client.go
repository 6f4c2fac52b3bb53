// Package client 是服务端的 Go 客户端 SDK：REST 调用、会话 cookie 管理、
// 实时事件流接入，以及一份与服务端收敛的本地状态缓存（Store）。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Channel 与服务端 REST/事件载荷中的频道数据对应。
type Channel struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message 与服务端 REST/事件载荷中的消息数据对应。
type Message struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIError 携带服务端返回的状态码和错误描述。
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Msg)
}

// Client 封装 REST 访问，会话 cookie 由内部 jar 维护。
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 15 * time.Second},
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
			Msg   string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		msg := payload.Error
		if msg == "" {
			msg = payload.Msg
		}
		return &APIError{Status: resp.StatusCode, Msg: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register 注册新用户，成功后会话 cookie 已就位。
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, nil)
}

// Login 登录并建立会话。
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, nil)
}

// Logout 注销当前会话。
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/auth/logout", nil, nil)
}

// Check 返回当前会话的用户名，未登录返回 401 的 APIError。
func (c *Client) Check(ctx context.Context) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/check", nil, &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

// FetchChannels 拉取全部频道。
func (c *Client) FetchChannels(ctx context.Context) ([]Channel, error) {
	var out []Channel
	if err := c.doJSON(ctx, http.MethodGet, "/api/channels", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChannel 发起创建频道请求；返回值仅用于预选中，
// 本地状态的权威插入路径是 channelCreated 广播。
func (c *Client) CreateChannel(ctx context.Context, name, description string) (*Channel, error) {
	body := struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}{name, description}
	var out Channel
	if err := c.doJSON(ctx, http.MethodPost, "/api/channel", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChannel 发起删除频道请求。
func (c *Client) DeleteChannel(ctx context.Context, id uint) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/channel/%d", id), nil, nil)
}

// FetchMessages 拉取频道内全部消息，按创建时间升序。
func (c *Client) FetchMessages(ctx context.Context, channelID uint) ([]Message, error) {
	var out []Message
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/messages/%d", channelID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage 发起发送消息请求。
func (c *Client) SendMessage(ctx context.Context, channelID uint, content string) (*Message, error) {
	body := struct {
		Content string `json:"content"`
	}{content}
	var out Message
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/messages/%d", channelID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Contact 提交联系表单。
func (c *Client) Contact(ctx context.Context, email, name, message string) error {
	body := struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Message string `json:"message"`
	}{email, name, message}
	return c.doJSON(ctx, http.MethodPost, "/api/contact", body, nil)
}

// DialEvents 建立到 /ws 的事件流连接，复用 jar 里的会话 cookie。
func (c *Client) DialEvents(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	dialer := websocket.Dialer{Jar: c.http.Jar, HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Msg: err.Error()}
		}
		return nil, err
	}
	return conn, nil
}
