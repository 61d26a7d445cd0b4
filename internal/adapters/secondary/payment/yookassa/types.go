package yookassa

// дока - https://yookassa.ru/developers/api

const (
	CurrencyRUB = "RUB"

	StatusSucceeded = "succeeded"

	EventPaymentSucceeded = "payment.succeeded"

	confirmationRedirect = "redirect"
)

type Amount struct {
	Value    string `json:"value"` // "149.00"
	Currency string `json:"currency"`
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type PaymentMethodData struct {
	Type string `json:"type"`
}

type CreatePaymentRequest struct {
	Amount            Amount             `json:"amount"`
	Capture           bool               `json:"capture"`
	Confirmation      Confirmation       `json:"confirmation"`
	Description       string             `json:"description,omitempty"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
	PaymentMethodData *PaymentMethodData `json:"payment_method_data,omitempty"`
}

type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"created_at,omitempty"`
}

// Notification входящее HTTP-уведомление
type Notification struct {
	Type   string  `json:"type"`
	Event  string  `json:"event"`
	Object Payment `json:"object"`
}

type errorResponse struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
}
