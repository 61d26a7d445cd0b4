package paymentController

type createRequest struct {
	BookID string `json:"bookId" binding:"required"`
}

type invoiceResponse struct {
	InvoiceLink string  `json:"invoiceLink"`
	BookID      string  `json:"bookId"`
	Amount      float64 `json:"amount"`
}

type alreadyOwnedResponse struct {
	AlreadyOwned bool   `json:"alreadyOwned"`
	BookID       string `json:"bookId"`
}

type gatewayResponse struct {
	PaymentID       string `json:"paymentId"`
	ConfirmationURL string `json:"confirmationUrl"`
	Status          string `json:"status"`
}

type usdtResponse struct {
	Address        string `json:"address"`
	ExpectedAmount string `json:"expectedAmount"`
	Network        string `json:"network"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
}

type verifyUSDTRequest struct {
	Address string `json:"address" binding:"required"`
	Network string `json:"network" binding:"required"`
	BookID  string `json:"bookId" binding:"required"`
	UserID  string `json:"userId"`
}

type verifyUSDTResponse struct {
	Verified bool `json:"verified"`
}
