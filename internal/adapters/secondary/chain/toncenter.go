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

const tonTransfersLimit = 50

// TonCenter поиск jetton-переводов USDT через toncenter v3 (отдаёт только финализированные)
type TonCenter struct {
	http       *httpGetter
	baseURL    string
	apiKey     string
	usdtMaster string
	log        *slog.Logger
}

func NewTonCenter(cfg *Config, log *slog.Logger) (*TonCenter, error) {
	master, err := NormalizeTONAddress(cfg.TonUSDTMaster)
	if err != nil {
		return nil, fmt.Errorf("invalid TON USDT master: %w", err)
	}

	return &TonCenter{
		http:       newHTTPGetter(cfg, log),
		baseURL:    strings.TrimSuffix(cfg.TonCenterURL, "/"),
		apiKey:     cfg.TonCenterAPIKey,
		usdtMaster: master,
		log:        log,
	}, nil
}

var _ chainPort.IExplorer = (*TonCenter)(nil)

func (t *TonCenter) Network() domain.Network {
	return domain.NetworkTON
}

type jettonTransfersResponse struct {
	JettonTransfers []jettonTransfer `json:"jetton_transfers"`
}

type jettonTransfer struct {
	Source             string `json:"source"`
	Destination        string `json:"destination"`
	Amount             string `json:"amount"`
	JettonMaster       string `json:"jetton_master"`
	TransactionHash    string `json:"transaction_hash"`
	TransactionNow     int64  `json:"transaction_now"`
	TransactionAborted bool   `json:"transaction_aborted"`
}

// FindIncoming входящие USDT на адрес (адрес владельца, не jetton-кошелька)
func (t *TonCenter) FindIncoming(ctx context.Context, address string, since time.Time) ([]chainPort.Transfer, error) {
	owner, err := NormalizeTONAddress(address)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("owner_address", owner)
	query.Set("jetton_master", t.usdtMaster)
	query.Set("direction", "in")
	query.Set("start_utime", strconv.FormatInt(since.Unix(), 10))
	query.Set("limit", strconv.Itoa(tonTransfersLimit))
	query.Set("sort", "desc")

	var resp jettonTransfersResponse
	observe := metrics.ObserveProvider(string(domain.PaymentMethodUSDTTON), "jetton_transfers")
	err = t.http.getJSON(ctx, t.baseURL+"/jetton/transfers?"+query.Encode(), map[string]string{"X-API-Key": t.apiKey}, &resp)
	observe()
	if err != nil {
		return nil, fmt.Errorf("toncenter jetton transfers failed: %w", err)
	}

	transfers := make([]chainPort.Transfer, 0, len(resp.JettonTransfers))
	for _, jt := range resp.JettonTransfers {
		if jt.TransactionAborted {
			continue
		}
		if !t.sameAddress(jt.JettonMaster, t.usdtMaster) || !t.sameAddress(jt.Destination, owner) {
			continue
		}

		amount, err := fromUnits(jt.Amount)
		if err != nil {
			t.log.Warn("skipping jetton transfer with bad amount", "error", err, "tx_hash", jt.TransactionHash)
			continue
		}

		transfers = append(transfers, chainPort.Transfer{
			Network:   domain.NetworkTON,
			TxHash:    jt.TransactionHash,
			From:      jt.Source,
			To:        owner,
			Amount:    amount,
			Timestamp: time.Unix(jt.TransactionNow, 0).UTC(),
		})
	}
	return transfers, nil
}

func (t *TonCenter) sameAddress(a, normalized string) bool {
	raw, err := NormalizeTONAddress(a)
	if err != nil {
		return false
	}
	return raw == normalized
}
