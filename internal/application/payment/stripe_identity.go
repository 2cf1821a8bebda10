package payment

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/amicale-sp/calendriers/internal/domain/donation"
	"github.com/stripe/stripe-go/v81"
)

func metadataIdentity(meta map[string]string) donation.IdentitySource {
	return donation.StaticIdentity("metadata", donation.DonorIdentity{
		Name:  meta[MetaDonorName],
		Email: meta[MetaDonorEmail],
	})
}

// checkoutSessionIdentity lists the places a Checkout Session carries the
// donor: customer details, the prefilled email, custom fields, metadata.
func checkoutSessionIdentity(sess *stripe.CheckoutSession) []donation.IdentitySource {
	var details donation.DonorIdentity
	if sess.CustomerDetails != nil {
		details = donation.DonorIdentity{Name: sess.CustomerDetails.Name, Email: sess.CustomerDetails.Email}
	}
	var custom donation.DonorIdentity
	for _, f := range sess.CustomFields {
		if f == nil || f.Text == nil {
			continue
		}
		key := strings.ToLower(f.Key)
		switch {
		case strings.Contains(key, "email"):
			custom.Email = f.Text.Value
		case strings.Contains(key, "name") || strings.Contains(key, "nom"):
			custom.Name = f.Text.Value
		}
	}
	return []donation.IdentitySource{
		donation.StaticIdentity("customer_details", details),
		donation.StaticIdentity("customer_email", donation.DonorIdentity{Email: sess.CustomerEmail}),
		donation.StaticIdentity("custom_fields", custom),
		metadataIdentity(sess.Metadata),
	}
}

// legacyCharges reads the embedded charge list older API versions put on
// payment intents.
type legacyCharges struct {
	Charges struct {
		Data []struct {
			BillingDetails struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"billing_details"`
		} `json:"data"`
	} `json:"charges"`
}

// paymentIntentBillingIdentity returns the first charge's billing details,
// from the legacy embedded list or an expanded latest_charge.
func paymentIntentBillingIdentity(raw json.RawMessage, pi *stripe.PaymentIntent) []donation.IdentitySource {
	var billing donation.DonorIdentity
	var legacy legacyCharges
	if err := json.Unmarshal(raw, &legacy); err == nil && len(legacy.Charges.Data) > 0 {
		bd := legacy.Charges.Data[0].BillingDetails
		billing = donation.DonorIdentity{Name: bd.Name, Email: bd.Email}
	}
	if pi.LatestCharge != nil && pi.LatestCharge.BillingDetails != nil {
		billing = billing.Normalize()
		if billing.Name == "" {
			billing.Name = pi.LatestCharge.BillingDetails.Name
		}
		if billing.Email == "" {
			billing.Email = pi.LatestCharge.BillingDetails.Email
		}
	}
	return []donation.IdentitySource{donation.StaticIdentity("charge_billing_details", billing)}
}

func chargeIdentity(name string, ch *stripe.Charge) donation.IdentitySource {
	var id donation.DonorIdentity
	if ch != nil && ch.BillingDetails != nil {
		id = donation.DonorIdentity{Name: ch.BillingDetails.Name, Email: ch.BillingDetails.Email}
	}
	if id.Email == "" && ch != nil {
		id.Email = ch.ReceiptEmail
	}
	return donation.StaticIdentity(name, id)
}

// liveIdentity looks the payment method then the latest charge up on the
// Stripe API. Lookups only run while a field is still missing.
func (s *StripeWebhookService) liveIdentity(pi *stripe.PaymentIntent) []donation.IdentitySource {
	var out []donation.IdentitySource
	if pi.PaymentMethod != nil && pi.PaymentMethod.ID != "" {
		pmID := pi.PaymentMethod.ID
		out = append(out, donation.IdentitySource{
			Name: "payment_method",
			Lookup: func(ctx context.Context) (donation.DonorIdentity, error) {
				pm, err := s.gateway.GetPaymentMethod(ctx, pmID)
				if err != nil {
					return donation.DonorIdentity{}, err
				}
				if pm.BillingDetails == nil {
					return donation.DonorIdentity{}, nil
				}
				return donation.DonorIdentity{Name: pm.BillingDetails.Name, Email: pm.BillingDetails.Email}, nil
			},
		})
	}
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		chargeID := pi.LatestCharge.ID
		out = append(out, donation.IdentitySource{
			Name: "latest_charge",
			Lookup: func(ctx context.Context) (donation.DonorIdentity, error) {
				ch, err := s.gateway.GetCharge(ctx, chargeID)
				if err != nil {
					return donation.DonorIdentity{}, err
				}
				return chargeIdentity("latest_charge", ch).Lookup(ctx)
			},
		})
	}
	return out
}
