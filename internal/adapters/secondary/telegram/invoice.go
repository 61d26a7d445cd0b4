package telegram

import (
	"context"
	"fmt"
)

// LabeledPrice представляет цену в invoice
type LabeledPrice struct {
	Label  string `json:"label"`  // название позиции
	Amount int64  `json:"amount"` // цена в минимальных единицах валюты (для Stars - количество звёзд)
}

// CreateInvoiceLinkRequest запрос на создание ссылки на оплату
// Документация: https://core.telegram.org/bots/api#createinvoicelink
type CreateInvoiceLinkRequest struct {
	Title         string         `json:"title"`       // 1-32 символа
	Description   string         `json:"description"` // 1-255 символов
	Payload       string         `json:"payload"`     // 1-128 байт, вернётся в successful_payment
	ProviderToken string         `json:"provider_token"`
	Currency      string         `json:"currency"` // "XTR" для Stars
	Prices        []LabeledPrice `json:"prices"`
}

// CreateInvoiceLink создаёт ссылку на invoice, которую Mini App открывает через openInvoice
func (c *Client) CreateInvoiceLink(ctx context.Context, req CreateInvoiceLinkRequest) (string, error) {
	var link string
	if err := c.call(ctx, "createInvoiceLink", req, &link); err != nil {
		return "", fmt.Errorf("failed to create invoice link: %w", err)
	}
	if link == "" {
		return "", fmt.Errorf("telegram returned empty invoice link")
	}

	c.log.Debug("invoice link created", "currency", req.Currency)
	return link, nil
}

// AnswerPreCheckoutQueryRequest запрос на ответ pre_checkout_query
type AnswerPreCheckoutQueryRequest struct {
	PreCheckoutQueryID string  `json:"pre_checkout_query_id"`
	OK                 bool    `json:"ok"`                      // true - подтвердить, false - отклонить
	ErrorMessage       *string `json:"error_message,omitempty"` // сообщение об ошибке (если ok=false)
}

// AnswerPreCheckoutQuery отвечает на pre_checkout_query (подтверждает или отклоняет платёж)
// Документация: https://core.telegram.org/bots/api#answerprecheckoutquery
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage *string) error {
	reqBody := AnswerPreCheckoutQueryRequest{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	}

	if err := c.call(ctx, "answerPreCheckoutQuery", reqBody, nil); err != nil {
		return fmt.Errorf("failed to answer pre_checkout_query [query_id=%s]: %w", queryID, err)
	}

	c.log.Debug("pre_checkout_query answered successfully",
		"query_id", queryID,
		"ok", ok,
	)
	return nil
}
