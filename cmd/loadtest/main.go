package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50 // pairs of members chatting with each other
	MsgCount  = 20 // messages per member
)

type frame struct {
	Kind    string            `json:"kind"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

type loginResponse struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
}

func main() {
	log.Printf("starting load test: %d members, %d messages each", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("load test complete")
}

func runPair(pairID int) {
	emailA := fmt.Sprintf("load_%d_a@test.local", pairID)
	emailB := fmt.Sprintf("load_%d_b@test.local", pairID)
	pass := "password123"

	tokenA, _ := authenticate(emailA, pass)
	tokenB, idB := authenticate(emailB, pass)
	if tokenA == "" || tokenB == "" {
		return
	}

	roomID := createPrivateRoom(tokenA, idB)
	if roomID == 0 {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go chatLoop(&wsWg, tokenA, emailA, roomID)
	go chatLoop(&wsWg, tokenB, emailB, roomID)
	wsWg.Wait()
}

// authenticate registers (ignoring the already-exists error) and logs in.
func authenticate(email, password string) (string, int64) {
	postJSON("/member/create", map[string]string{
		"name": email, "email": email, "password": password,
	}, "")

	resp, err := postJSON("/member/doLogin", map[string]string{
		"email": email, "password": password,
	}, "")
	if err != nil {
		log.Printf("login failed [%s]: %v", email, err)
		return "", 0
	}
	defer resp.Body.Close()

	var data loginResponse
	json.NewDecoder(resp.Body).Decode(&data)
	return data.Token, data.ID
}

func createPrivateRoom(token string, partnerID int64) int64 {
	url := fmt.Sprintf("/chat/room/private/create?chatPartnerId=%d", partnerID)
	resp, err := postJSON(url, nil, token)
	if err != nil || resp.StatusCode != http.StatusOK {
		log.Printf("create private room failed: %v", err)
		return 0
	}
	defer resp.Body.Close()

	var data struct {
		RoomID int64 `json:"roomId"`
	}
	json.NewDecoder(resp.Body).Decode(&data)
	return data.RoomID
}

func chatLoop(wg *sync.WaitGroup, token, email string, roomID int64) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(WSURL, nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", email, err)
		return
	}
	defer conn.Close()

	bearer := map[string]string{"Authorization": "Bearer " + token}

	// OPEN, then SUBSCRIBE to the room topic, then spam SEND frames.
	if err := conn.WriteJSON(frame{Kind: "OPEN", Headers: bearer}); err != nil {
		return
	}
	sub := frame{Kind: "SUBSCRIBE", Headers: map[string]string{
		"Authorization": bearer["Authorization"],
		"destination":   fmt.Sprintf("/topic/%d", roomID),
	}}
	if err := conn.WriteJSON(sub); err != nil {
		return
	}

	// Drain server frames so the send buffer never backs up.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < MsgCount; i++ {
		body, _ := json.Marshal(map[string]string{
			"message":     fmt.Sprintf("load test message %d from %s", i, email),
			"senderEmail": email,
		})
		send := frame{
			Kind:    "SEND",
			Headers: map[string]string{"destination": fmt.Sprintf("/publish/%d", roomID)},
			Body:    body,
		}
		if err := conn.WriteJSON(send); err != nil {
			log.Printf("send failed [%s]: %v", email, err)
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("%s finished sending %d messages", email, MsgCount)
}

func postJSON(endpoint string, data interface{}, token string) (*http.Response, error) {
	var body bytes.Buffer
	if data != nil {
		json.NewEncoder(&body).Encode(data)
	}
	req, err := http.NewRequest("POST", BaseURL+endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}
