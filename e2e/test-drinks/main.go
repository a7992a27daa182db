package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	httpclient "github.com/astro-web3/coffee-drinks/pkg/http"
)

type envelope struct {
	Success bool              `json:"success"`
	Error   int               `json:"error"`
	Message string            `json:"message"`
	Delete  uint              `json:"delete"`
	Drinks  []json.RawMessage `json:"drinks"`
}

type step struct {
	name   string
	method string
	path   string
	body   any
	auth   bool
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <access-token> [server-addr]", os.Args[0])
	}

	token := os.Args[1]
	serverAddr := "http://localhost:8080"
	if len(os.Args) > 2 {
		serverAddr = "http://localhost" + os.Args[2]
	}

	client := httpclient.NewClient(httpclient.WithTimeout(10*time.Second), httpclient.WithRetryCount(0))
	ctx := context.Background()
	title := fmt.Sprintf("e2e-%d", time.Now().Unix())

	steps := []step{
		{name: "public menu", method: http.MethodGet, path: "/drinks"},
		{name: "detail without token", method: http.MethodGet, path: "/drinks-detail"},
		{name: "detail", method: http.MethodGet, path: "/drinks-detail", auth: true},
		{name: "create", method: http.MethodPost, path: "/drinks", auth: true, body: map[string]any{
			"title":  title,
			"recipe": []map[string]any{{"name": "espresso", "color": "brown", "parts": 1}},
		}},
	}

	var created uint
	for _, s := range steps {
		env, status := run(ctx, client, serverAddr, token, s)
		if s.name == "create" && status == http.StatusOK && len(env.Drinks) == 1 {
			var d struct {
				ID uint `json:"id"`
			}
			if err := json.Unmarshal(env.Drinks[0], &d); err == nil {
				created = d.ID
			}
		}
	}

	if created == 0 {
		fmt.Println("\nNo drink created, skipping update and delete")
		return
	}

	path := fmt.Sprintf("/drinks/%d", created)
	run(ctx, client, serverAddr, token, step{name: "update", method: http.MethodPatch, path: path, auth: true,
		body: map[string]any{"title": title + "-renamed"}})
	run(ctx, client, serverAddr, token, step{name: "delete", method: http.MethodDelete, path: path, auth: true})
	run(ctx, client, serverAddr, token, step{name: "delete again", method: http.MethodDelete, path: path, auth: true})
}

func run(ctx context.Context, client *httpclient.Client, addr, token string, s step) (envelope, int) {
	var env envelope
	opts := []httpclient.RequestOption{httpclient.WithResult(&env)}
	if s.auth {
		opts = append(opts, httpclient.WithAuthToken(token))
	}
	if s.body != nil {
		opts = append(opts, httpclient.WithBody(s.body))
	}

	resp, err := client.Request(ctx, s.method, addr+s.path, opts...)
	if err != nil {
		fmt.Printf("❌ %-22s request failed: %v\n", s.name, err)
		return env, 0
	}

	status := resp.StatusCode()
	if status >= http.StatusBadRequest {
		// error bodies are not decoded into the result
		_ = json.Unmarshal(resp.Body(), &env)
		fmt.Printf("⛔ %-22s %d %s\n", s.name, status, env.Message)
		return env, status
	}

	fmt.Printf("✅ %-22s %d drinks=%d delete=%d\n", s.name, status, len(env.Drinks), env.Delete)
	return env, status
}
