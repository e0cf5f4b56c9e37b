// Package smartconnect is a minimal Angel One SmartAPI client covering
// the surface the trading engine needs: session login, historical
// candles, last-traded price, and order placement/cancellation. It
// mirrors the official REST routes and header conventions.
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultRoot = "https://apiconnect.angelone.in"

var routes = map[string]string{
	"login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"logout":       "/rest/secure/angelbroking/user/v1/logout",
	"profile":      "/rest/secure/angelbroking/user/v1/getProfile",
	"order.place":  "/rest/secure/angelbroking/order/v1/placeOrder",
	"order.cancel": "/rest/secure/angelbroking/order/v1/cancelOrder",
	"ltp":          "/rest/secure/angelbroking/order/v1/getLtpData",
	"candles":      "/rest/secure/angelbroking/historical/v1/getCandleData",
}

// Config controls client construction. Only APIKey is mandatory.
type Config struct {
	APIKey  string
	RootURL string        // default https://apiconnect.angelone.in
	Timeout time.Duration // default 7s

	// header fields the API requires; sensible fallbacks applied
	ClientLocalIP  string
	ClientPublicIP string
	ClientMAC      string
}

// Client is a SmartAPI HTTP session. Safe for concurrent use after
// GenerateSession has completed.
type Client struct {
	apiKey      string
	rootURL     string
	accessToken string
	feedToken   string
	clientCode  string

	localIP  string
	publicIP string
	mac      string

	httpClient *http.Client

	// invoked when the API reports an expired token (HTTP 403)
	SessionExpiryHook func()
}

// New builds an unauthenticated client; call GenerateSession before
// any data or order method.
func New(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	if cfg.ClientLocalIP == "" {
		cfg.ClientLocalIP = "127.0.0.1"
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = "127.0.0.1"
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = "00:11:22:33:44:55"
	}
	return &Client{
		apiKey:     cfg.APIKey,
		rootURL:    strings.TrimRight(cfg.RootURL, "/"),
		localIP:    cfg.ClientLocalIP,
		publicIP:   cfg.ClientPublicIP,
		mac:        cfg.ClientMAC,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// FeedToken returns the websocket feed token issued at login.
func (c *Client) FeedToken() string { return c.feedToken }

// AccessToken returns the JWT issued at login.
func (c *Client) AccessToken() string { return c.accessToken }

// ClientCode returns the logged-in client code.
func (c *Client) ClientCode() string { return c.clientCode }

type apiResponse struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", c.localIP)
	h.Set("X-ClientPublicIP", c.publicIP)
	h.Set("X-MACAddress", c.mac)
	h.Set("X-PrivateKey", c.apiKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	return h
}

func (c *Client) post(ctx context.Context, route string, params any) (*apiResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: marshal %s: %w", route, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+routes[route], bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = c.headers()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smartconnect: %s: read body: %w", route, err)
	}
	if resp.StatusCode == http.StatusForbidden && c.SessionExpiryHook != nil {
		c.SessionExpiryHook()
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("smartconnect: %s: status %d: unparseable body", route, resp.StatusCode)
	}
	if !out.Status {
		return &out, fmt.Errorf("smartconnect: %s: %s (%s)", route, out.Message, out.ErrorCode)
	}
	return &out, nil
}

// GenerateSession logs in with client code, PIN and a fresh TOTP and
// stores the issued tokens on the client.
func (c *Client) GenerateSession(ctx context.Context, clientCode, password, totp string) error {
	res, err := c.post(ctx, "login", map[string]string{
		"clientcode": clientCode,
		"password":   password,
		"totp":       totp,
	})
	if err != nil {
		return err
	}
	var data struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return fmt.Errorf("smartconnect: login response: %w", err)
	}
	c.accessToken = data.JWTToken
	c.feedToken = data.FeedToken
	c.clientCode = clientCode
	return nil
}

// TerminateSession logs the session out.
func (c *Client) TerminateSession(ctx context.Context) error {
	_, err := c.post(ctx, "logout", map[string]string{"clientcode": c.clientCode})
	return err
}

// CandleRow is one OHLCV bar from the historical API.
type CandleRow struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// GetCandleData fetches historical bars for a token. Interval uses
// SmartAPI names (ONE_MINUTE, FIVE_MINUTE, ...); from/to use the
// exchange-local "2006-01-02 15:04" format.
func (c *Client) GetCandleData(ctx context.Context, exchange, token, interval, from, to string) ([]CandleRow, error) {
	res, err := c.post(ctx, "candles", map[string]string{
		"exchange":    exchange,
		"symboltoken": token,
		"interval":    interval,
		"fromdate":    from,
		"todate":      to,
	})
	if err != nil {
		return nil, err
	}

	// rows arrive as [timestamp, open, high, low, close, volume]
	var rows [][]any
	if err := json.Unmarshal(res.Data, &rows); err != nil {
		return nil, fmt.Errorf("smartconnect: candle data: %w", err)
	}
	out := make([]CandleRow, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("smartconnect: candle row %d: want 6 fields, got %d", i, len(row))
		}
		tsStr, _ := row[0].(string)
		ts, err := time.Parse("2006-01-02T15:04:05-07:00", tsStr)
		if err != nil {
			return nil, fmt.Errorf("smartconnect: candle row %d: bad timestamp %q", i, tsStr)
		}
		get := func(v any) float64 {
			f, _ := v.(float64)
			return f
		}
		out = append(out, CandleRow{
			Time:   ts,
			Open:   get(row[1]),
			High:   get(row[2]),
			Low:    get(row[3]),
			Close:  get(row[4]),
			Volume: int64(get(row[5])),
		})
	}
	return out, nil
}

// LTP fetches the last traded price for one instrument.
func (c *Client) LTP(ctx context.Context, exchange, symbol, token string) (float64, error) {
	res, err := c.post(ctx, "ltp", map[string]string{
		"exchange":      exchange,
		"tradingsymbol": symbol,
		"symboltoken":   token,
	})
	if err != nil {
		return 0, err
	}
	var data struct {
		LTP float64 `json:"ltp"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		return 0, fmt.Errorf("smartconnect: ltp response: %w", err)
	}
	return data.LTP, nil
}

// OrderParams describes one market/limit order.
type OrderParams struct {
	Variety         string `json:"variety"`         // NORMAL
	TradingSymbol   string `json:"tradingsymbol"`   // e.g. RELIANCE-EQ
	SymbolToken     string `json:"symboltoken"`     // exchange token
	TransactionType string `json:"transactiontype"` // BUY or SELL
	Exchange        string `json:"exchange"`        // NSE, BSE
	OrderType       string `json:"ordertype"`       // MARKET or LIMIT
	ProductType     string `json:"producttype"`     // INTRADAY
	Duration        string `json:"duration"`        // DAY
	Price           string `json:"price,omitempty"`
	Quantity        int64  `json:"quantity"`
}

// PlaceOrder submits an order and returns the broker order id.
func (c *Client) PlaceOrder(ctx context.Context, p OrderParams) (string, error) {
	if p.Variety == "" {
		p.Variety = "NORMAL"
	}
	if p.OrderType == "" {
		p.OrderType = "MARKET"
	}
	if p.ProductType == "" {
		p.ProductType = "INTRADAY"
	}
	if p.Duration == "" {
		p.Duration = "DAY"
	}
	res, err := c.post(ctx, "order.place", p)
	if err != nil {
		return "", err
	}
	var data struct {
		OrderID string `json:"orderid"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil || data.OrderID == "" {
		return "", fmt.Errorf("smartconnect: place order: missing order id")
	}
	return data.OrderID, nil
}

// CancelOrder cancels a resting order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	_, err := c.post(ctx, "order.cancel", map[string]string{
		"variety": "NORMAL",
		"orderid": orderID,
	})
	return err
}
