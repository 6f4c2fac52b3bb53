package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatapp/internal/client"
	"chatapp/internal/config"
	"chatapp/internal/db"
	"chatapp/internal/service"
	"chatapp/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect("host=localhost user=postgres password=postgres dbname=chatapp port=5432 sslmode=disable TimeZone=UTC")
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	return gdb
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testDB(t)
	cfg := config.Config{Port: "0", Env: "dev", PingIntervalSeconds: 1}

	hub := ws.NewHub(time.Second)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	h := NewHandler(cfg,
		service.NewUserService(gdb),
		service.NewChannelService(gdb, hub),
		service.NewMessageService(gdb, hub),
		service.NewContactService(gdb, "", ""),
	)
	srv := httptest.NewServer(SetupRouter(cfg, gdb, hub, h))
	t.Cleanup(srv.Close)
	return srv
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != status {
		t.Fatalf("error = %v, want APIError with status %d", err, status)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	cl, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	username := uniq("user")
	if err := cl.Register(ctx, username, "secret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, err := cl.Check(ctx)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got != username {
		t.Errorf("Check() = %q, want %q", got, username)
	}

	// duplicate username is rejected
	cl2, _ := client.New(srv.URL)
	wantStatus(t, cl2.Register(ctx, username, "secret"), http.StatusConflict)

	// wrong password is rejected
	wantStatus(t, cl2.Login(ctx, username, "wrong"), http.StatusUnauthorized)

	// unauthenticated clients are shut out of the API and the event stream
	if _, err := cl2.FetchChannels(ctx); err == nil {
		t.Error("FetchChannels() without session should fail")
	}
	if _, err := cl2.DialEvents(ctx); err == nil {
		t.Error("DialEvents() without session should fail")
	}

	if err := cl.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	wantStatus(t, func() error { _, e := cl.Check(ctx); return e }(), http.StatusUnauthorized)
}

// TestRealtimeBroadcastScenario drives two fully wired clients against a live
// server: every mutation one client makes must reach both through the event
// stream, and both local stores must converge to the same state.
func TestRealtimeBroadcastScenario(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connect := func(name string) (*client.Client, *client.Store) {
		t.Helper()
		cl, err := client.New(srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		if err := cl.Register(ctx, name, "secret"); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
		store := client.NewStore(cl)
		if err := store.LoadChannels(ctx); err != nil {
			t.Fatalf("LoadChannels() error = %v", err)
		}
		conn, err := cl.DialEvents(ctx)
		if err != nil {
			t.Fatalf("DialEvents() error = %v", err)
		}
		go func() { _ = store.Listen(ctx, conn) }()
		return cl, store
	}

	_, alice := connect(uniq("alice"))
	_, bob := connect(uniq("bob"))

	findChannel := func(s *client.Store, name string) (uint, bool) {
		for _, ch := range s.Channels() {
			if ch.Name == name {
				return ch.ID, true
			}
		}
		return 0, false
	}

	// channel created by alice appears in both stores via the broadcast
	chName := uniq("team")
	if err := alice.CreateChannel(ctx, chName, "planning"); err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}
	var chID uint
	waitUntil(t, "channel visible to both clients", func() bool {
		idA, okA := findChannel(alice, chName)
		_, okB := findChannel(bob, chName)
		chID = idA
		return okA && okB
	})
	if got := alice.CurrentChat(); got != chID {
		t.Errorf("creator CurrentChat() = %d, want %d", got, chID)
	}

	if err := bob.SelectChannel(ctx, chID); err != nil {
		t.Fatalf("SelectChannel() error = %v", err)
	}

	// a message sent by alice lands in both stores exactly once
	if err := alice.SendMessage(ctx, chID, "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	hasHello := func(s *client.Store) bool {
		msgs := s.Messages(chID)
		return len(msgs) == 1 && msgs[0].Content == "hello"
	}
	waitUntil(t, "message visible to both clients", func() bool {
		return hasHello(alice) && hasHello(bob)
	})

	// deletion removes the channel everywhere and moves the selection off it
	if err := bob.DeleteChannel(ctx, chID); err != nil {
		t.Fatalf("DeleteChannel() error = %v", err)
	}
	waitUntil(t, "channel removed from both clients", func() bool {
		_, okA := findChannel(alice, chName)
		_, okB := findChannel(bob, chName)
		return !okA && !okB && alice.CurrentChat() != chID && bob.CurrentChat() != chID
	})
	if got := len(alice.Messages(chID)); got != 0 {
		t.Errorf("Messages(%d) len after delete = %d, want 0", chID, got)
	}
}

func TestChannelAndMessageErrors(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	cl, err := client.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := cl.Register(ctx, uniq("carol"), "secret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	chName := uniq("dup")
	ch, err := cl.CreateChannel(ctx, chName, "")
	if err != nil {
		t.Fatalf("CreateChannel() error = %v", err)
	}

	// duplicate channel name
	_, err = cl.CreateChannel(ctx, chName, "")
	wantStatus(t, err, http.StatusConflict)

	// empty message content
	_, err = cl.SendMessage(ctx, ch.ID, "   ")
	wantStatus(t, err, http.StatusBadRequest)

	// unknown channel
	_, err = cl.FetchMessages(ctx, 99999999)
	wantStatus(t, err, http.StatusNotFound)
	_, err = cl.SendMessage(ctx, 99999999, "hi")
	wantStatus(t, err, http.StatusNotFound)
	wantStatus(t, cl.DeleteChannel(ctx, 99999999), http.StatusNotFound)

	if err := cl.DeleteChannel(ctx, ch.ID); err != nil {
		t.Fatalf("DeleteChannel() error = %v", err)
	}
	wantStatus(t, cl.DeleteChannel(ctx, ch.ID), http.StatusNotFound)
}

// TestSPAFallback registers the router with a frontend build present. The
// fallback must hang off NoRoute: a root catch-all conflicts with the
// registered /api routes and makes gin panic during registration.
func TestSPAFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	dist := filepath.Join(root, "frontend", "dist")
	if err := os.MkdirAll(filepath.Join(dist, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>chatapp</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(wd) }()

	cfg := config.Config{Port: "0", Env: "dev", PingIntervalSeconds: 10}
	hub := ws.NewHub(time.Hour)
	engine := SetupRouter(cfg, nil, hub, NewHandler(cfg, nil, nil, nil, nil))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := get("/healthz"); w.Code != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", w.Code)
	}
	for _, path := range []string{"/", "/login", "/chat/5"} {
		w := get(path)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "chatapp") {
			t.Errorf("GET %s = %d %q, want index.html", path, w.Code, w.Body.String())
		}
	}
	if w := get("/assets/app.js"); w.Code != http.StatusOK || w.Body.String() != "console.log(1)" {
		t.Errorf("GET /assets/app.js = %d %q, want the asset", w.Code, w.Body.String())
	}
	if w := get("/assets/missing.js"); w.Code != http.StatusNotFound {
		t.Errorf("GET /assets/missing.js = %d, want 404", w.Code)
	}
	if w := get("/api/unknown"); w.Code != http.StatusNotFound {
		t.Errorf("GET /api/unknown = %d, want 404", w.Code)
	}
}
