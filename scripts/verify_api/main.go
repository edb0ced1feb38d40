package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
)

type LoginResponse struct {
	Token string `json:"token"`
}

// Smoke test against a running API seeded with scripts/migrate/seed.example.json.
func main() {
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "bob", "user to log in as")
	teamID := flag.String("team", "T1", "team to query")
	flag.Parse()

	reqBody, _ := json.Marshal(map[string]string{"userId": *userID})
	resp, err := http.Post(*apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("Login failed (%d): %s", resp.StatusCode, body)
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Token: %s...\n", loginResp.Token[:10])

	for _, call := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/teams/" + *teamID + "/messages?limit=10"},
		{http.MethodGet, "/teams/" + *teamID + "/unread-count"},
		{http.MethodPut, "/teams/" + *teamID + "/read"},
		{http.MethodGet, "/teams/" + *teamID + "/unread-count"},
		{http.MethodGet, "/teams/" + *teamID + "/online"},
	} {
		req, _ := http.NewRequest(call.method, *apiAddr+call.path, nil)
		req.Header.Add("Authorization", "Bearer "+loginResp.Token)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatalf("%s %s failed: %v", call.method, call.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Printf("%s %s -> %d %s", call.method, call.path, resp.StatusCode, bytes.TrimSpace(body))
	}
}
