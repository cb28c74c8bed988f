package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

const KrakenBaseURL = "https://api.kraken.com"

// operation table: logical operation name -> REST endpoint.
var krakenOps = map[string]struct {
	path    string
	private bool
}{
	"Time":         {"/0/public/Time", false},
	"Ticker":       {"/0/public/Ticker", false},
	"OHLC":         {"/0/public/OHLC", false},
	"AssetPairs":   {"/0/public/AssetPairs", false},
	"Balance":      {"/0/private/Balance", true},
	"TradeBalance": {"/0/private/TradeBalance", true},
	"AddOrder":     {"/0/private/AddOrder", true},
}

// krakenTransport is the raw REST boundary: one HTTP round trip per Query,
// no retry. The RetryingCaller wraps it.
type krakenTransport struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	nonce     atomic.Int64
}

func newKrakenTransport(apiKey, apiSecret, baseURL string) *krakenTransport {
	t := &krakenTransport{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
	t.nonce.Store(time.Now().UnixMilli())
	return t
}

// sign computes API-Sign: base64(HMAC-SHA512(path + SHA256(nonce + postdata))).
func (t *krakenTransport) sign(path, nonce, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(t.apiSecret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}
	inner := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(inner[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (t *krakenTransport) Query(ctx context.Context, operation string, params url.Values) (json.RawMessage, error) {
	op, ok := krakenOps[operation]
	if !ok {
		return nil, &domain.ExchangeError{Op: operation, Message: "unknown operation"}
	}
	if params == nil {
		params = url.Values{}
	}

	var req *http.Request
	var err error

	if op.private {
		nonce := strconv.FormatInt(t.nonce.Add(1), 10)
		params.Set("nonce", nonce)
		postData := params.Encode()

		req, err = http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+op.path, strings.NewReader(postData))
		if err != nil {
			return nil, &domain.ExchangeError{Op: operation, Err: err}
		}
		sig, serr := t.sign(op.path, nonce, postData)
		if serr != nil {
			return nil, &domain.ExchangeError{Op: operation, Err: serr}
		}
		req.Header.Set("API-Key", t.apiKey)
		req.Header.Set("API-Sign", sig)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		path := op.path
		if encoded := params.Encode(); encoded != "" {
			path += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, bytes.NewReader(nil))
		if err != nil {
			return nil, &domain.ExchangeError{Op: operation, Err: err}
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &domain.ExchangeError{Op: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ExchangeError{Op: operation, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, &domain.ExchangeError{Op: operation, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var envelope struct {
		Error  []string        `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &domain.ExchangeError{Op: operation, Err: err}
	}
	if len(envelope.Error) > 0 {
		return nil, &domain.ExchangeError{Op: operation, Message: strings.Join(envelope.Error, ", ")}
	}

	return envelope.Result, nil
}

// Client implements domain.Exchange against the Kraken REST API, with every
// call going through the retrying caller.
type Client struct {
	caller *RetryingCaller
	logger *zap.Logger
}

func NewClient(apiKey, apiSecret, baseURL string, policy RetryPolicy, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = KrakenBaseURL
	}
	t := newKrakenTransport(apiKey, apiSecret, baseURL)
	return &Client{
		caller: NewRetryingCaller(t, policy, logger),
		logger: logger,
	}
}

func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	raw, err := c.caller.Call(ctx, "Time", nil)
	if err != nil {
		return time.Time{}, err
	}
	var result struct {
		UnixTime int64 `json:"unixtime"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return time.Time{}, &domain.ExchangeError{Op: "Time", Err: err}
	}
	return time.Unix(result.UnixTime, 0), nil
}

func (c *Client) Balance(ctx context.Context) (map[string]float64, error) {
	raw, err := c.caller.Call(ctx, "Balance", nil)
	if err != nil {
		return nil, err
	}
	var result map[string]string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ExchangeError{Op: "Balance", Err: err}
	}
	balances := make(map[string]float64, len(result))
	for asset, amount := range result {
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			continue
		}
		balances[asset] = v
	}
	return balances, nil
}

// TradeBalance returns the equivalent balance (combined balance of all
// currencies) expressed in the given quote asset.
func (c *Client) TradeBalance(ctx context.Context, quote string) (float64, error) {
	params := url.Values{}
	params.Set("asset", quote)
	raw, err := c.caller.Call(ctx, "TradeBalance", params)
	if err != nil {
		return 0, err
	}
	var result struct {
		EquivalentBalance string `json:"eb"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, &domain.ExchangeError{Op: "TradeBalance", Err: err}
	}
	v, err := strconv.ParseFloat(result.EquivalentBalance, 64)
	if err != nil {
		return 0, &domain.ExchangeError{Op: "TradeBalance", Err: err}
	}
	return v, nil
}

func (c *Client) Ticker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	params := url.Values{}
	params.Set("pair", symbol)
	raw, err := c.caller.Call(ctx, "Ticker", params)
	if err != nil {
		return nil, err
	}

	// Result is keyed by the exchange's canonical pair name, which may
	// differ from the requested alias. Take the single entry.
	var result map[string]struct {
		C []string `json:"c"` // last trade [price, volume]
		V []string `json:"v"` // volume [today, 24h]
		L []string `json:"l"` // low [today, 24h]
		H []string `json:"h"` // high [today, 24h]
		O string   `json:"o"` // today's opening price
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ExchangeError{Op: "Ticker", Err: err}
	}
	for _, entry := range result {
		if len(entry.C) == 0 {
			break
		}
		last, _ := strconv.ParseFloat(entry.C[0], 64)
		open, _ := strconv.ParseFloat(entry.O, 64)
		ticker := &domain.Ticker{Symbol: symbol, LastPrice: last}
		if len(entry.V) > 1 {
			ticker.Volume24h, _ = strconv.ParseFloat(entry.V[1], 64)
		}
		if len(entry.L) > 1 {
			ticker.Low24h, _ = strconv.ParseFloat(entry.L[1], 64)
		}
		if len(entry.H) > 1 {
			ticker.High24h, _ = strconv.ParseFloat(entry.H[1], 64)
		}
		if open > 0 {
			ticker.Change24hPct = (last - open) / open * 100
		}
		return ticker, nil
	}
	return nil, &domain.ExchangeError{Op: "Ticker", Message: "no ticker data for " + symbol}
}

func (c *Client) OHLC(ctx context.Context, symbol string, intervalMin int, since time.Time) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("pair", symbol)
	params.Set("interval", strconv.Itoa(intervalMin))
	if !since.IsZero() {
		params.Set("since", strconv.FormatInt(since.Unix(), 10))
	}
	raw, err := c.caller.Call(ctx, "OHLC", params)
	if err != nil {
		return nil, err
	}

	// Result holds the candle array under the pair key plus a "last" cursor.
	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ExchangeError{Op: "OHLC", Err: err}
	}

	var candles []domain.Candle
	for key, value := range result {
		if key == "last" {
			continue
		}
		// Rows: [time, open, high, low, close, vwap, volume, count]
		var rows [][]json.RawMessage
		if err := json.Unmarshal(value, &rows); err != nil {
			return nil, &domain.ExchangeError{Op: "OHLC", Err: err}
		}
		for _, row := range rows {
			if len(row) < 8 {
				continue
			}
			var ts int64
			var count int
			var open, high, low, closePrice, volume string
			json.Unmarshal(row[0], &ts)
			json.Unmarshal(row[1], &open)
			json.Unmarshal(row[2], &high)
			json.Unmarshal(row[3], &low)
			json.Unmarshal(row[4], &closePrice)
			json.Unmarshal(row[6], &volume)
			json.Unmarshal(row[7], &count)

			candle := domain.Candle{Time: ts, TradeCount: count}
			candle.Open, _ = strconv.ParseFloat(open, 64)
			candle.High, _ = strconv.ParseFloat(high, 64)
			candle.Low, _ = strconv.ParseFloat(low, 64)
			candle.Close, _ = strconv.ParseFloat(closePrice, 64)
			candle.Volume, _ = strconv.ParseFloat(volume, 64)
			candles = append(candles, candle)
		}
	}

	// Kraken returns candles oldest first already, but do not rely on it.
	for i := 1; i < len(candles); i++ {
		if candles[i].Time < candles[i-1].Time {
			sortCandles(candles)
			break
		}
	}
	return candles, nil
}

func sortCandles(candles []domain.Candle) {
	for i := 1; i < len(candles); i++ {
		for j := i; j > 0 && candles[j].Time < candles[j-1].Time; j-- {
			candles[j], candles[j-1] = candles[j-1], candles[j]
		}
	}
}

func (c *Client) AssetPair(ctx context.Context, symbol string) (*domain.AssetPairInfo, error) {
	params := url.Values{}
	params.Set("pair", symbol)
	raw, err := c.caller.Call(ctx, "AssetPairs", params)
	if err != nil {
		return nil, err
	}

	var result map[string]struct {
		WSName      string  `json:"wsname"`
		Base        string  `json:"base"`
		Quote       string  `json:"quote"`
		LotDecimals int     `json:"lot_decimals"`
		OrderMin    string  `json:"ordermin"`
		LeverageBuy []int   `json:"leverage_buy"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ExchangeError{Op: "AssetPairs", Err: err}
	}
	for _, entry := range result {
		info := &domain.AssetPairInfo{
			Symbol:      symbol,
			Base:        entry.Base,
			Quote:       entry.Quote,
			WSName:      entry.WSName,
			LotDecimals: entry.LotDecimals,
		}
		info.OrderMin, _ = strconv.ParseFloat(entry.OrderMin, 64)
		for _, lev := range entry.LeverageBuy {
			if lev > info.MaxLeverage {
				info.MaxLeverage = lev
			}
		}
		return info, nil
	}
	return nil, &domain.ExchangeError{Op: "AssetPairs", Message: "unknown pair " + symbol}
}

func (c *Client) AddOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderConfirmation, error) {
	params := url.Values{}
	params.Set("pair", req.Symbol)
	params.Set("ordertype", "market")
	params.Set("volume", req.Volume)
	orderSide := "buy"
	if req.Side == domain.SideShort {
		orderSide = "sell"
	}
	if req.ReduceOnly {
		// Closing trades on the opposite side of the position.
		if orderSide == "buy" {
			orderSide = "sell"
		} else {
			orderSide = "buy"
		}
	}
	params.Set("type", orderSide)
	if req.Leverage > 1 {
		params.Set("leverage", strconv.Itoa(req.Leverage))
	}
	if req.ReduceOnly && req.Leverage > 1 {
		params.Set("reduce_only", "true")
	}
	if req.ValidateOnly {
		params.Set("validate", "true")
	}
	if req.ClientID != "" {
		params.Set("cl_ord_id", req.ClientID)
	}

	raw, err := c.caller.Call(ctx, "AddOrder", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Descr struct {
			Order string `json:"order"`
		} `json:"descr"`
		TxID []string `json:"txid"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &domain.ExchangeError{Op: "AddOrder", Err: err}
	}

	conf := &domain.OrderConfirmation{TxIDs: result.TxID, Description: result.Descr.Order}
	if req.ValidateOnly && len(conf.TxIDs) == 0 {
		// Validate-only orders return no txid; synthesize one so paper
		// trading follows the same confirmed path.
		conf.TxIDs = []string{"VALIDATE-" + req.ClientID}
	}
	return conf, nil
}
