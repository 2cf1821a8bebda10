package router

import (
	"github.com/amicale-sp/calendriers/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the endpoints of the donation API. HelloAssoWebhook may be
// nil when the integration is disabled.
type Handlers struct {
	Donations        *handler.DonationHandler
	Tournees         *handler.TourneeHandler
	Checkouts        *handler.CheckoutHandler
	Receipts         *handler.ReceiptHandler
	StripeWebhook    *handler.StripeWebhookHandler
	HelloAssoWebhook *handler.HelloAssoWebhookHandler
	Health           *handler.HealthHandler
}

// Guards are the middleware chains applied per audience.
type Guards struct {
	// Authenticated runs before every collector endpoint (JWT auth first).
	Authenticated []gin.HandlerFunc
	// PublicCheckout protects the anonymous landing checkout.
	PublicCheckout []gin.HandlerFunc
}

// RegisterAPI mounts health, webhook and /api/v1 routes on engine.
func RegisterAPI(engine *gin.Engine, h Handlers, g Guards) {
	engine.GET("/health", h.Health.Health)

	webhooks := engine.Group("/webhooks")
	webhooks.POST("/stripe", h.StripeWebhook.Handle)
	if h.HelloAssoWebhook != nil {
		webhooks.POST("/helloasso", h.HelloAssoWebhook.Handle)
	}

	checkout := NewDomainGroup("checkout", "/checkout").
		Use(g.PublicCheckout...).
		POST("/landing", h.Checkouts.Landing)

	donations := NewDomainGroup("donations", "/donations").
		Use(g.Authenticated...).
		POST("", h.Donations.Submit)

	tournees := NewDomainGroup("tournees", "/tournees").
		Use(g.Authenticated...).
		GET("", h.Tournees.List).
		POST("", h.Tournees.Start)
	tournees.Group("tournee", "/:id").
		GET("", h.Tournees.Get).
		GET("/summary", h.Tournees.Summary).
		GET("/transactions", h.Tournees.Transactions).
		POST("/close", h.Tournees.Close).
		POST("/checkout", h.Checkouts.Tournee).
		POST("/intents", h.Checkouts.Intent)

	receipts := NewDomainGroup("receipts", "/receipts").
		Use(g.Authenticated...).
		POST("/:id/resend", h.Receipts.Resend)

	NewRouter(engine).
		Register(checkout).
		Register(donations).
		Register(tournees).
		Register(receipts).
		Setup()
}
