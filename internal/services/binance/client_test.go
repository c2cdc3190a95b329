package binance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klineEventJSON = `{
  "e": "kline",
  "s": "BTCUSDT",
  "k": {
    "t": 1717243200000,
    "o": "67000.10",
    "h": "67250.00",
    "l": "66900.55",
    "c": "67100.25",
    "v": "123.456",
    "x": true
  }
}`

func TestKlineEventDecoding(t *testing.T) {
	var ev wsKlineEvent
	require.NoError(t, json.Unmarshal([]byte(klineEventJSON), &ev))

	assert.Equal(t, "kline", ev.Type)
	assert.Equal(t, "BTCUSDT", ev.Symbol)
	assert.True(t, ev.Kline.Closed)
	assert.Equal(t, int64(1717243200000), ev.Kline.Start)
}

func TestCandleFrom(t *testing.T) {
	var ev wsKlineEvent
	require.NoError(t, json.Unmarshal([]byte(klineEventJSON), &ev))

	c, err := candleFrom(ev.Kline)
	require.NoError(t, err)

	assert.Equal(t, time.UnixMilli(1717243200000).UTC(), c.Timestamp)
	assert.InDelta(t, 67000.10, c.Open, 1e-9)
	assert.InDelta(t, 67250.00, c.High, 1e-9)
	assert.InDelta(t, 66900.55, c.Low, 1e-9)
	assert.InDelta(t, 67100.25, c.Close, 1e-9)
	assert.InDelta(t, 123.456, c.Volume, 1e-9)
}

func TestCandleFromBadNumber(t *testing.T) {
	_, err := candleFrom(wsKline{Open: "not-a-price", High: "1", Low: "1", Close: "1", Volume: "1"})
	assert.Error(t, err)
}
