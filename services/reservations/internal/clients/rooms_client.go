package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Room is the subset of the rooms service response this service needs.
// The rooms service is operated separately and only ever called over HTTP.
type Room struct {
	ID     int64    `json:"id"`
	Number string   `json:"number"`
	Status string   `json:"status"`
	Price  *float64 `json:"price,omitempty"`
}

const RoomStatusFree = "free"
const RoomStatusOccupied = "occupied"

type RoomsClient interface {
	GetRoom(ctx context.Context, id int64) (*Room, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

type roomsClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRoomsClient(baseURL, token string) RoomsClient {
	return &roomsClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *roomsClient) GetRoom(ctx context.Context, id int64) (*Room, error) {
	url := fmt.Sprintf("%s/api/rooms/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rooms service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rooms service returned status %d", resp.StatusCode)
	}

	var room Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}
	return &room, nil
}

func (c *roomsClient) SetStatus(ctx context.Context, id int64, status string) error {
	url := fmt.Sprintf("%s/api/rooms/%d/status", c.baseURL, id)

	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("rooms service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("rooms service returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *roomsClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
