package chain

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sskutushev/Bookly-sub000/internal/domain"
	chainPort "github.com/Sskutushev/Bookly-sub000/internal/ports/chain"
	"github.com/Sskutushev/Bookly-sub000/internal/pkg/metrics"
)

const tronTransfersLimit = 50

// TronGrid поиск TRC20 переводов USDT, only_confirmed=true
type TronGrid struct {
	http     *httpGetter
	baseURL  string
	apiKey   string
	contract string
	log      *slog.Logger
}

func NewTronGrid(cfg *Config, log *slog.Logger) (*TronGrid, error) {
	if err := ValidateTRONAddress(cfg.TronUSDTContract); err != nil {
		return nil, fmt.Errorf("invalid TRON USDT contract: %w", err)
	}

	return &TronGrid{
		http:     newHTTPGetter(cfg, log),
		baseURL:  strings.TrimSuffix(cfg.TronGridURL, "/"),
		apiKey:   cfg.TronGridAPIKey,
		contract: cfg.TronUSDTContract,
		log:      log,
	}, nil
}

var _ chainPort.IExplorer = (*TronGrid)(nil)

func (t *TronGrid) Network() domain.Network {
	return domain.NetworkTRC20
}

type trc20Response struct {
	Data    []trc20Transfer `json:"data"`
	Success bool            `json:"success"`
}

type trc20Transfer struct {
	TransactionID  string `json:"transaction_id"`
	BlockTimestamp int64  `json:"block_timestamp"` // мс
	From           string `json:"from"`
	To             string `json:"to"`
	Type           string `json:"type"`
	Value          string `json:"value"`
	TokenInfo      struct {
		Address  string `json:"address"`
		Decimals int    `json:"decimals"`
	} `json:"token_info"`
}

func (t *TronGrid) FindIncoming(ctx context.Context, address string, since time.Time) ([]chainPort.Transfer, error) {
	if err := ValidateTRONAddress(address); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("only_confirmed", "true")
	query.Set("only_to", "true")
	query.Set("contract_address", t.contract)
	query.Set("min_timestamp", strconv.FormatInt(since.UnixMilli(), 10))
	query.Set("limit", strconv.Itoa(tronTransfersLimit))

	var resp trc20Response
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/transactions/trc20?%s", t.baseURL, url.PathEscape(address), query.Encode())

	observe := metrics.ObserveProvider(string(domain.PaymentMethodUSDTTRC20), "trc20_transactions")
	err := t.http.getJSON(ctx, endpoint, map[string]string{"TRON-PRO-API-KEY": t.apiKey}, &resp)
	observe()
	if err != nil {
		return nil, fmt.Errorf("trongrid trc20 transactions failed: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("trongrid returned success=false")
	}

	transfers := make([]chainPort.Transfer, 0, len(resp.Data))
	for _, tx := range resp.Data {
		if tx.Type != "Transfer" || tx.To != address || tx.TokenInfo.Address != t.contract {
			continue
		}

		amount, err := fromUnits(tx.Value)
		if err != nil {
			t.log.Warn("skipping trc20 transfer with bad amount", "error", err, "tx_id", tx.TransactionID)
			continue
		}

		transfers = append(transfers, chainPort.Transfer{
			Network:   domain.NetworkTRC20,
			TxHash:    tx.TransactionID,
			From:      tx.From,
			To:        tx.To,
			Amount:    amount,
			Timestamp: time.UnixMilli(tx.BlockTimestamp).UTC(),
		})
	}
	return transfers, nil
}
