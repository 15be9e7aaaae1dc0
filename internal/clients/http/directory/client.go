package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound signals that the directory has no record for the requested ID.
var ErrNotFound = errors.New("directory record not found")

// UserPayload is the wire shape of a directory account.
type UserPayload struct {
	ID      string   `json:"id"`
	Roles   []string `json:"roles"`
	StoreID string   `json:"storeId,omitempty"`
}

// StorePayload is the wire shape of a directory store.
type StorePayload struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
}

// CartPayload is the wire shape of a buyer's cart.
type CartPayload struct {
	ID     string   `json:"id"`
	SKUIDs []string `json:"skuIds"`
}

type deleteItemsRequest struct {
	SKUIDs []string `json:"skuIds"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Client talks to the platform directory service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient instantiates the directory client with sane defaults.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("directory base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// GetUser fetches an account by ID.
func (c *Client) GetUser(ctx context.Context, id string) (UserPayload, error) {
	var payload UserPayload
	err := c.getJSON(ctx, "/users/"+url.PathEscape(id), &payload)
	return payload, err
}

// GetStore fetches a store by ID.
func (c *Client) GetStore(ctx context.Context, id string) (StorePayload, error) {
	var payload StorePayload
	err := c.getJSON(ctx, "/stores/"+url.PathEscape(id), &payload)
	return payload, err
}

// ShipperExists probes the shipper registry.
func (c *Client) ShipperExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "/shippers/"+url.PathEscape(id))
}

// RoomExists probes the room registry.
func (c *Client) RoomExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "/rooms/"+url.PathEscape(id))
}

// GetCart fetches the buyer's active cart.
func (c *Client) GetCart(ctx context.Context, buyerID string) (CartPayload, error) {
	var payload CartPayload
	err := c.getJSON(ctx, "/carts/"+url.PathEscape(buyerID), &payload)
	return payload, err
}

// DeleteItemsBySKU removes the given SKUs from a cart.
func (c *Client) DeleteItemsBySKU(ctx context.Context, cartID string, skuIDs []string) error {
	if c == nil || c.httpClient == nil {
		return errors.New("directory client not configured")
	}
	body, err := json.Marshal(deleteItemsRequest{SKUIDs: skuIDs})
	if err != nil {
		return fmt.Errorf("encode cart delete request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/carts/"+url.PathEscape(cartID)+"/items", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build cart delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call directory API: %w", err)
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("directory API error: %s", statusMessage(resp))
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c == nil || c.httpClient == nil {
		return errors.New("directory client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call directory API: %w", err)
	}
	defer drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode directory response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("directory API error: %s", statusMessage(resp))
	}
}

func (c *Client) exists(ctx context.Context, path string) (bool, error) {
	err := c.getJSON(ctx, path, &struct{}{})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func statusMessage(resp *http.Response) string {
	var body errorPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		if msg := strings.TrimSpace(body.Message); msg != "" {
			return fmt.Sprintf("%s: %s", resp.Status, msg)
		}
	}
	return resp.Status
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
