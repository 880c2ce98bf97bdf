package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"time"

	"task_manager/internal/client"

	"github.com/gorilla/websocket"
)

// Logs in over HTTP, subscribes to /ws and checks that creating a project
// produces a project.created event.
func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "server host:port")
	email := flag.String("email", "smoke@example.com", "login email")
	password := flag.String("password", "smoke-password", "login password")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	c, err := client.New("http://" + *addr + "/api")
	if err != nil {
		log.Fatal(err)
	}
	if _, err := c.Login(ctx, *email, *password); err != nil {
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) {
			log.Fatalf("login: %v", err)
		}
		if _, err := c.Register(ctx, "Smoke", *email, *password); err != nil {
			log.Fatalf("register: %v", err)
		}
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	wsURL := fmt.Sprintf("ws://%s/ws?token=%s", *addr, url.QueryEscape(c.Session().Token))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	p, err := c.CreateProject(ctx, "smoke "+time.Now().Format(time.RFC3339), "created by ws_smoke")
	if err != nil {
		log.Fatalf("create project: %v", err)
	}

	var ev struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := conn.ReadJSON(&ev); err != nil {
		log.Fatalf("read event: %v", err)
	}
	log.Printf("got %s for %v", ev.Type, ev.Data["id"])

	if err := c.DeleteProject(ctx, p.ID); err != nil {
		log.Fatalf("cleanup: %v", err)
	}
	log.Println("smoke test finished")
}
