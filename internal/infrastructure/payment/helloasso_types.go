package payment

import "encoding/json"

// HelloAssoPayer is the payer block shared by checkout intents and notifications.
type HelloAssoPayer struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// HelloAssoCheckoutRequest is the body of POST /v5/organizations/{slug}/checkout-intents.
// Amounts are in cents.
type HelloAssoCheckoutRequest struct {
	TotalAmount      int64             `json:"totalAmount"`
	InitialAmount    int64             `json:"initialAmount"`
	ItemName         string            `json:"itemName"`
	BackURL          string            `json:"backUrl"`
	ErrorURL         string            `json:"errorUrl"`
	ReturnURL        string            `json:"returnUrl"`
	ContainsDonation bool              `json:"containsDonation"`
	Payer            *HelloAssoPayer   `json:"payer,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// HelloAssoCheckout is the response to a checkout-intent creation.
type HelloAssoCheckout struct {
	ID          int64  `json:"id"`
	RedirectURL string `json:"redirectUrl"`
}

// HelloAssoNotification is the envelope POSTed to the notification URL.
type HelloAssoNotification struct {
	EventType string            `json:"eventType"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata"`
}

// HelloAssoPayment is the data of a "Payment" notification.
type HelloAssoPayment struct {
	ID     int64          `json:"id"`
	Amount int64          `json:"amount"`
	State  string         `json:"state"`
	Payer  HelloAssoPayer `json:"payer"`
	Order  struct {
		ID int64 `json:"id"`
	} `json:"order"`
}

// HelloAssoOrder is the data of an "Order" notification.
type HelloAssoOrder struct {
	ID     int64          `json:"id"`
	Payer  HelloAssoPayer `json:"payer"`
	Amount struct {
		Total int64 `json:"total"`
	} `json:"amount"`
	Payments []struct {
		ID     int64  `json:"id"`
		Amount int64  `json:"amount"`
		State  string `json:"state"`
	} `json:"payments"`
	CheckoutIntentID int64 `json:"checkoutIntentId"`
}

// HelloAsso notification event types and payment states.
const (
	HelloAssoEventPayment    = "Payment"
	HelloAssoEventOrder      = "Order"
	HelloAssoStateAuthorized = "Authorized"
)
