package constants

import "github.com/shopspring/decimal"

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	SessionKeyAdmin     = "admin_token"
	SessionCookieName   = "mudralaya_admin"
	AdminHeader         = "X-Admin-Password"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Dashboard
const (
	DashboardTaskLimit        = 5
	DashboardTransactionLimit = 5
)

// Membership plans
const (
	FreePlanCode       = "free"
	IndividualPlanCode = "individual"
	MembershipCurrency = "INR"
)

// Payouts
const (
	// MinimumPayoutThresholdUnits is the approved balance (whole rupees) a user needs before a payout.
	MinimumPayoutThresholdUnits = 500
)

// MinimumPayoutThreshold is MinimumPayoutThresholdUnits as a decimal.
var MinimumPayoutThreshold = decimal.NewFromInt(MinimumPayoutThresholdUnits)
