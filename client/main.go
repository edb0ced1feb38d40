package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
	"github.com/mahaj/teamsync/pkg/model"
)

type Settings struct {
	GatewayAddr string `envconfig:"GATEWAY_ADDR" default:"localhost:8080"`
	APIAddr     string `envconfig:"API_ADDR" default:"http://localhost:8081"`
	User        string `envconfig:"USER_ID"`
	Team        string `envconfig:"TEAM_ID"`
	Colours     bool   `envconfig:"COLOURS" default:"true"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func login(apiAddr, userID string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}
	return loginResp.Token, nil
}

func main() {
	var settings Settings
	if err := envconfig.Process("TEAMSYNC", &settings); err != nil {
		log.Fatal("config:", err)
	}
	serverAddr := flag.String("addr", settings.GatewayAddr, "gateway service address")
	apiAddr := flag.String("api", settings.APIAddr, "api service address")
	userID := flag.String("user", settings.User, "user id")
	teamID := flag.String("team", settings.Team, "team to join on connect")
	flag.Parse()
	color.Enable = settings.Colours

	if *userID == "" {
		log.Fatal("a user id is required: -user or TEAMSYNC_USER_ID")
	}

	log.Printf("Logging in as %s...", *userID)
	token, err := login(*apiAddr, *userID)
	if err != nil {
		log.Fatal("Login failed: ", err)
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)
	log.Printf("connecting to %s", u.String())
	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	// only the stdin goroutine writes, except for the final close frame
	outbound := make(chan []byte, 16)
	sess := &session{}
	if *teamID != "" {
		if event, payload, err := sess.parse("/join " + *teamID); err == nil {
			frame, _ := model.Encode(event, payload)
			outbound <- frame
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, frame, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}
			if line, ok := render(frame); ok {
				fmt.Printf("\r%s\n> ", line)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	quit := make(chan struct{})

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			if scanner.Text() == "" {
				fmt.Print("> ")
				continue
			}
			event, payload, err := sess.parse(scanner.Text())
			if errors.Is(err, errQuit) {
				close(quit)
				return
			}
			if err != nil {
				fmt.Printf("%s\n> ", color.Red.Sprint(err))
				continue
			}
			frame, err := model.Encode(event, payload)
			if err != nil {
				log.Println("encode:", err)
				continue
			}
			outbound <- frame
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case frame := <-outbound:
			if err := c.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Println("write:", err)
				return
			}
		case <-done:
			return
		case <-interrupt:
			closeSocket(c, done)
			return
		case <-quit:
			closeSocket(c, done)
			return
		}
	}
}

// closeSocket sends a close frame and waits briefly for the server to close.
func closeSocket(c *websocket.Conn, done <-chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("write close:", err)
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
