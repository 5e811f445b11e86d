package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider provisions optional video-conference rooms alongside game
// sessions. Both operations may fail without aborting gameplay.
type Provider interface {
	Configured() bool
	CreateRoom(ctx context.Context, roomCode string, maxParticipants int) (*Room, error)
	DeleteRoom(ctx context.Context, name string) error
}

// Room is a provisioned video room.
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Daily talks to the Daily.co REST API.
type Daily struct {
	apiKey  string
	domain  string
	baseURL string
	client  *http.Client
}

// NewDaily creates a Daily.co provider. Empty credentials leave the
// provider unconfigured; callers should check Configured.
func NewDaily(apiKey, domain string) *Daily {
	return &Daily{
		apiKey:  apiKey,
		domain:  domain,
		baseURL: "https://api.daily.co/v1",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether API credentials are present.
func (d *Daily) Configured() bool {
	return d.apiKey != ""
}

type createRoomRequest struct {
	Name       string         `json:"name"`
	Privacy    string         `json:"privacy"`
	Properties roomProperties `json:"properties"`
}

type roomProperties struct {
	MaxParticipants   int   `json:"max_participants"`
	EnableScreenshare bool  `json:"enable_screenshare"`
	EnableChat        bool  `json:"enable_chat"`
	EnableKnocking    bool  `json:"enable_knocking"`
	EnablePrejoinUI   bool  `json:"enable_prejoin_ui"`
	Exp               int64 `json:"exp"`
}

// CreateRoom provisions a public video room named after the game room
// code, expiring in 24 hours.
func (d *Daily) CreateRoom(ctx context.Context, roomCode string, maxParticipants int) (*Room, error) {
	if !d.Configured() {
		return nil, fmt.Errorf("daily: api key not configured")
	}
	if maxParticipants < 2 {
		maxParticipants = 2
	}
	if maxParticipants > 8 {
		maxParticipants = 8
	}

	reqBody := createRoomRequest{
		Name:    "conectaplus-" + strings.ToLower(roomCode),
		Privacy: "public",
		Properties: roomProperties{
			MaxParticipants: maxParticipants,
			Exp:             time.Now().Add(24 * time.Hour).Unix(),
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/rooms", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("daily: create room returned %s", resp.Status)
	}

	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom tears down a provisioned video room.
func (d *Daily) DeleteRoom(ctx context.Context, name string) error {
	if !d.Configured() {
		return fmt.Errorf("daily: api key not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, d.baseURL+"/rooms/"+name, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("daily: delete room returned %s", resp.Status)
	}
	return nil
}
