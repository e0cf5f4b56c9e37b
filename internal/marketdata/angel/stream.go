package angel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autotradev1/internal/model"
	"autotradev1/internal/ringbuf"
	"autotradev1/pkg/smartconnect"
)

// tickStaleAfter bounds how old a cached websocket price may be before
// LTP falls back to REST.
const tickStaleAfter = 15 * time.Second

// Stream consumes the SmartAPI market feed and maintains a last-price
// cache keyed by instrument. The websocket reader is the single
// producer into an SPSC ring; a drain goroutine is the single consumer
// updating the cache, so the hot read path never contends with the
// socket.
type Stream struct {
	feed   *smartconnect.MarketFeed
	rest   *Source
	ring   *ringbuf.Ring
	logger *slog.Logger

	mu     sync.RWMutex
	prices map[string]cachedTick // "exchange:symbol" -> latest
	tokens map[string]model.Instrument
}

type cachedTick struct {
	price float64
	at    time.Time
}

// exchangeTypes maps instrument exchanges to feed protocol codes.
var exchangeTypes = map[string]int{
	"NSE": smartconnect.ExchangeNSECM,
	"NFO": smartconnect.ExchangeNSEFO,
	"BSE": smartconnect.ExchangeBSECM,
}

// NewStream builds a feed-backed price cache for the watchlist. rest
// serves as fallback when the feed has no fresh tick.
func NewStream(feed *smartconnect.MarketFeed, rest *Source, watchlist []model.Instrument, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		feed:   feed,
		rest:   rest,
		ring:   ringbuf.New(4096),
		logger: logger,
		prices: make(map[string]cachedTick),
		tokens: make(map[string]model.Instrument, len(watchlist)),
	}
	for _, inst := range watchlist {
		s.tokens[inst.Exchange+":"+inst.Token] = inst
	}
	return s
}

// Run subscribes the watchlist in LTP mode and pumps ticks until ctx
// is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	byExchange := map[int][]string{}
	for _, inst := range s.tokens {
		code, ok := exchangeTypes[inst.Exchange]
		if !ok {
			return fmt.Errorf("angel: no feed exchange code for %q", inst.Exchange)
		}
		byExchange[code] = append(byExchange[code], inst.Token)
	}
	var lists []smartconnect.TokenList
	for code, toks := range byExchange {
		lists = append(lists, smartconnect.TokenList{ExchangeType: code, Tokens: toks})
	}
	if err := s.feed.Subscribe(smartconnect.ModeLTP, lists); err != nil {
		return err
	}

	s.feed.OnTick = func(ft smartconnect.FeedTick) {
		if !s.ring.Push(toTick(ft)) {
			s.logger.Warn("tick ring full, dropping tick", slog.String("token", ft.Token))
		}
	}
	s.feed.OnError = func(err error) {
		s.logger.Warn("market feed error", slog.String("err", err.Error()))
	}

	go s.drain(ctx)
	return s.feed.Run(ctx)
}

func (s *Stream) drain(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				tick, ok := s.ring.Pop()
				if !ok {
					break
				}
				inst, ok := s.tokens[tick.Exchange+":"+tick.Token]
				if !ok {
					continue
				}
				s.mu.Lock()
				s.prices[inst.Key()] = cachedTick{price: tick.LTP, at: time.Now()}
				s.mu.Unlock()
			}
		}
	}
}

// LTP implements model.LTPSource: fresh websocket price when
// available, REST otherwise.
func (s *Stream) LTP(ctx context.Context, inst model.Instrument) (float64, error) {
	s.mu.RLock()
	cached, ok := s.prices[inst.Key()]
	s.mu.RUnlock()
	if ok && time.Since(cached.at) < tickStaleAfter {
		return cached.price, nil
	}
	if s.rest == nil {
		return 0, fmt.Errorf("angel: no fresh tick for %s and no rest fallback", inst.Key())
	}
	return s.rest.LTP(ctx, inst)
}

// toTick converts one wire packet to the engine's tick type: paise to
// rupees, epoch millis to time.Time.
func toTick(ft smartconnect.FeedTick) model.Tick {
	return model.Tick{
		Token:    ft.Token,
		Exchange: exchangeName(ft.ExchangeType),
		LTP:      float64(ft.LTPPaise) / 100,
		TS:       time.UnixMilli(ft.ExchangeTS),
	}
}

func exchangeName(code int) string {
	switch code {
	case smartconnect.ExchangeNSECM:
		return "NSE"
	case smartconnect.ExchangeNSEFO:
		return "NFO"
	case smartconnect.ExchangeBSECM:
		return "BSE"
	default:
		return "NSE"
	}
}
