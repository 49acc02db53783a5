package domain

const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

const (
	PropStatusOpen      = "OPEN"
	PropStatusSuspended = "SUSPENDED"
	PropStatusSettled   = "SETTLED"
)

const (
	MarketPoints   = "POINTS"
	MarketRebounds = "REBOUNDS"
	MarketAssists  = "ASSISTS"
	MarketThrees   = "THREES"
	MarketPRA      = "PRA"
)

var Markets = []string{MarketPoints, MarketRebounds, MarketAssists, MarketThrees, MarketPRA}

const (
	PickOver  = "OVER"
	PickUnder = "UNDER"
)

// Checkout metadata keys shared with the billing provider.
const (
	MetaUserID            = "user_id"
	MetaType              = "type"
	MetaAmountCents       = "amount_cents"
	MetaCheckoutSessionID = "checkout_session_id"
)

const (
	CheckoutTypeBalanceCredit = "balance_credit"
	CheckoutTypeSubscription  = "subscription"
	TxnTypePremiumPurchase    = "premium_purchase"
)

const (
	NotifTypeBalanceCredited = "BALANCE_CREDITED"
	NotifTypePremiumGranted  = "PREMIUM_GRANTED"
	NotifTypePropSettled     = "PROP_SETTLED"
)

// Admin-tunable system setting keys.
const (
	SettingPremiumPriceCents = "premium_price_cents"
	SettingMinTopUpCents     = "min_topup_cents"
)
