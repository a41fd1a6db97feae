package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the carrier's REST API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CreateAddress(ctx context.Context, addr Address) (*Address, error) {
	var out Address
	if err := c.post(ctx, "/addresses", addr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateParcel(ctx context.Context, parcel Parcel) (*Parcel, error) {
	var out Parcel
	if err := c.post(ctx, "/parcels", parcel, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RateShipment(ctx context.Context, from, to *Address, parcel *Parcel) (string, []Rate, error) {
	req := map[string]any{
		"from_address": from,
		"to_address":   to,
		"parcel":       parcel,
	}
	var out struct {
		ID    string `json:"id"`
		Rates []Rate `json:"rates"`
	}
	if err := c.post(ctx, "/shipments", req, &out); err != nil {
		return "", nil, err
	}
	return out.ID, out.Rates, nil
}

func (c *Client) BuyLabel(ctx context.Context, shipmentID, rateID string) (*Label, error) {
	req := map[string]any{"rate": map[string]string{"id": rateID}}
	var out Label
	if err := c.post(ctx, "/shipments/"+shipmentID+"/buy", req, &out); err != nil {
		return nil, err
	}
	out.ShipmentID = shipmentID
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCarrier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned %d", ErrCarrier, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
