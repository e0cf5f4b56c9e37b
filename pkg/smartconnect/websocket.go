package smartconnect

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// streamURI is the SmartAPI v2 market-feed endpoint.
const streamURI = "wss://smartapisocket.angelone.in/smart-stream"

const heartbeatInterval = 10 * time.Second

// Feed subscription modes.
const (
	ModeLTP       = 1
	ModeQuote     = 2
	ModeSnapQuote = 3
)

// Exchange type codes used by the feed protocol.
const (
	ExchangeNSECM = 1
	ExchangeNSEFO = 2
	ExchangeBSECM = 3
)

// FeedTick is one decoded LTP packet. Price is in paise as the wire
// sends it; divide by 100 for rupees.
type FeedTick struct {
	Token        string
	ExchangeType int
	LTPPaise     int64
	ExchangeTS   int64 // epoch millis
}

// TokenList groups tokens by exchange type for one subscribe request.
type TokenList struct {
	ExchangeType int      `json:"exchangeType"`
	Tokens       []string `json:"tokens"`
}

// MarketFeed is a resilient websocket consumer of the SmartAPI market
// stream. Decoded ticks are delivered to OnTick from a single reader
// goroutine; subscriptions survive reconnects.
type MarketFeed struct {
	authToken  string
	apiKey     string
	clientCode string
	feedToken  string

	OnTick  func(FeedTick)
	OnError func(err error)

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   map[int][]TokenList // mode -> lists
	closed bool

	maxRetries int
	retryDelay time.Duration
}

// NewMarketFeed validates the credential set and returns an
// unconnected feed.
func NewMarketFeed(authToken, apiKey, clientCode, feedToken string) (*MarketFeed, error) {
	if authToken == "" || apiKey == "" || clientCode == "" || feedToken == "" {
		return nil, errors.New("smartconnect: market feed requires auth token, api key, client code and feed token")
	}
	return &MarketFeed{
		authToken:  authToken,
		apiKey:     apiKey,
		clientCode: clientCode,
		feedToken:  feedToken,
		subs:       make(map[int][]TokenList),
		maxRetries: 5,
		retryDelay: 5 * time.Second,
	}, nil
}

// Run connects and pumps ticks until ctx is cancelled, reconnecting
// with resubscribe on transient failures.
func (f *MarketFeed) Run(ctx context.Context) error {
	attempts := 0
	for {
		if err := f.connect(ctx); err != nil {
			attempts++
			if attempts > f.maxRetries {
				return fmt.Errorf("smartconnect: feed gave up after %d attempts: %w", attempts, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.retryDelay):
			}
			continue
		}
		attempts = 0

		err := f.readLoop(ctx)
		f.closeConn()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if f.OnError != nil && err != nil {
			f.OnError(err)
		}
	}
}

func (f *MarketFeed) connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", f.authToken)
	header.Set("x-api-key", f.apiKey)
	header.Set("x-client-code", f.clientCode)
	header.Set("x-feed-token", f.feedToken)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURI, header)
	if err != nil {
		return fmt.Errorf("smartconnect: feed dial: %w", err)
	}

	f.mu.Lock()
	f.conn = conn
	subs := make(map[int][]TokenList, len(f.subs))
	for mode, lists := range f.subs {
		subs[mode] = lists
	}
	f.mu.Unlock()

	for mode, lists := range subs {
		if err := f.sendSubscribe(mode, lists); err != nil {
			f.closeConn()
			return err
		}
	}
	return nil
}

// Subscribe registers tokens for the given mode; the request is also
// replayed after every reconnect.
func (f *MarketFeed) Subscribe(mode int, lists []TokenList) error {
	f.mu.Lock()
	f.subs[mode] = append(f.subs[mode], lists...)
	connected := f.conn != nil
	f.mu.Unlock()
	if !connected {
		return nil
	}
	return f.sendSubscribe(mode, lists)
}

func (f *MarketFeed) sendSubscribe(mode int, lists []TokenList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return errors.New("smartconnect: feed not connected")
	}
	return f.conn.WriteJSON(map[string]any{
		"action": 1,
		"params": map[string]any{"mode": mode, "tokenList": lists},
	})
}

func (f *MarketFeed) readLoop(ctx context.Context) error {
	conn := f.currentConn()
	if conn == nil {
		return errors.New("smartconnect: feed not connected")
	}

	done := make(chan struct{})
	defer close(done)
	go f.heartbeat(ctx, conn, done)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt == websocket.TextMessage {
			continue // "pong" and control frames
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		tick, err := decodeTick(msg)
		if err != nil {
			continue
		}
		if f.OnTick != nil {
			f.OnTick(tick)
		}
	}
}

func (f *MarketFeed) heartbeat(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func (f *MarketFeed) currentConn() *websocket.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

func (f *MarketFeed) closeConn() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
		f.conn = nil
	}
}

// decodeTick parses the fixed little-endian header common to every
// subscription mode: mode, exchange type, 25-byte token, sequence,
// exchange timestamp, LTP in paise.
func decodeTick(b []byte) (FeedTick, error) {
	if len(b) < 51 {
		return FeedTick{}, errors.New("smartconnect: feed packet too short")
	}
	token := b[2:27]
	end := len(token)
	for i, c := range token {
		if c == 0 {
			end = i
			break
		}
	}
	return FeedTick{
		ExchangeType: int(b[1]),
		Token:        string(token[:end]),
		ExchangeTS:   int64(binary.LittleEndian.Uint64(b[35:43])),
		LTPPaise:     int64(binary.LittleEndian.Uint64(b[43:51])),
	}, nil
}
