package chain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
)

const (
	tronRecipient = "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf"
	tronSender    = "TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7"
	tronContract  = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

var (
	tonOwner  = "0:" + strings.Repeat("a", 64)
	tonMaster = "0:" + strings.Repeat("b", 64)
	tonOther  = "0:" + strings.Repeat("c", 64)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(url string) *Config {
	return &Config{
		TonCenterURL:     url,
		TonUSDTMaster:    tonMaster,
		TronGridURL:      url,
		TronUSDTContract: tronContract,
		Timeout:          time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Millisecond,
		RetryMaxDelay:    5 * time.Millisecond,
	}
}

func TestNormalizeAddress(t *testing.T) {
	raw, err := NormalizeAddress(domain.NetworkTON, "  "+tonOwner+" ")
	require.NoError(t, err)
	assert.Equal(t, tonOwner, raw)

	_, err = NormalizeAddress(domain.NetworkTON, "not-an-address")
	assert.ErrorIs(t, err, domain.ErrValidation)

	addr, err := NormalizeAddress(domain.NetworkTRC20, tronRecipient)
	require.NoError(t, err)
	assert.Equal(t, tronRecipient, addr)

	_, err = NormalizeAddress(domain.NetworkTRC20, "T0000000000000000000000000000000O0")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NormalizeAddress(domain.Network("ERC20"), tronRecipient)
	assert.ErrorIs(t, err, domain.ErrUnknownNetwork)
}

func TestTronGridFindIncoming(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/"+tronRecipient+"/transactions/trc20", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("TRON-PRO-API-KEY"))
		gotQuery = r.URL.RawQuery
		fmt.Fprintf(w, `{"success":true,"data":[
			{"transaction_id":"tx1","block_timestamp":%d,"from":"%s","to":"%s","type":"Transfer","value":"1500000","token_info":{"address":"%s","decimals":6}},
			{"transaction_id":"tx2","block_timestamp":%d,"from":"%s","to":"%s","type":"Approval","value":"9000000","token_info":{"address":"%s","decimals":6}},
			{"transaction_id":"tx3","block_timestamp":%d,"from":"%s","to":"%s","type":"Transfer","value":"9000000","token_info":{"address":"%s","decimals":6}}
		]}`,
			since.Add(time.Minute).UnixMilli(), tronSender, tronRecipient, tronContract,
			since.Add(time.Minute).UnixMilli(), tronSender, tronRecipient, tronContract,
			since.Add(time.Minute).UnixMilli(), tronRecipient, tronSender, tronContract,
		)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.TronGridAPIKey = "key"
	tron, err := NewTronGrid(cfg, testLogger())
	require.NoError(t, err)

	transfers, err := tron.FindIncoming(context.Background(), tronRecipient, since)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "tx1", transfers[0].TxHash)
	assert.Equal(t, "1.5", transfers[0].Amount.String())
	assert.Equal(t, domain.NetworkTRC20, transfers[0].Network)
	assert.Contains(t, gotQuery, "only_confirmed=true")
	assert.Contains(t, gotQuery, fmt.Sprintf("min_timestamp=%d", since.UnixMilli()))
}

func TestTronGridRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	tron, err := NewTronGrid(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	transfers, err := tron.FindIncoming(context.Background(), tronRecipient, time.Now())
	require.NoError(t, err)
	assert.Empty(t, transfers)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTronGridDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tron, err := NewTronGrid(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	_, err = tron.FindIncoming(context.Background(), tronRecipient, time.Now())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTonCenterFindIncoming(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jetton/transfers", r.URL.Path)
		assert.Equal(t, tonOwner, r.URL.Query().Get("owner_address"))
		assert.Equal(t, "in", r.URL.Query().Get("direction"))
		fmt.Fprintf(w, `{"jetton_transfers":[
			{"source":"%s","destination":"%s","amount":"2000000","jetton_master":"%s","transaction_hash":"h1","transaction_now":%d,"transaction_aborted":false},
			{"source":"%s","destination":"%s","amount":"5000000","jetton_master":"%s","transaction_hash":"h2","transaction_now":%d,"transaction_aborted":true},
			{"source":"%s","destination":"%s","amount":"5000000","jetton_master":"%s","transaction_hash":"h3","transaction_now":%d,"transaction_aborted":false}
		]}`,
			tonOther, tonOwner, tonMaster, since.Unix()+60,
			tonOther, tonOwner, tonMaster, since.Unix()+60,
			tonOther, tonOwner, tonOther, since.Unix()+60,
		)
	}))
	defer srv.Close()

	ton, err := NewTonCenter(testConfig(srv.URL), testLogger())
	require.NoError(t, err)

	transfers, err := ton.FindIncoming(context.Background(), tonOwner, since)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "h1", transfers[0].TxHash)
	assert.Equal(t, "2", transfers[0].Amount.String())
	assert.Equal(t, since.Add(time.Minute).UTC(), transfers[0].Timestamp)
}

func TestNewExplorersRejectBadContracts(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.TonUSDTMaster = "bad"
	_, err := NewTonCenter(cfg, testLogger())
	assert.Error(t, err)

	cfg = testConfig("http://localhost")
	cfg.TronUSDTContract = "bad"
	_, err = NewTronGrid(cfg, testLogger())
	assert.Error(t, err)
}
