package appstore

import "strconv"

// ReceiptResponse is the decoded body returned by verifyReceipt.
type ReceiptResponse struct {
	Status      int      `json:"status"`
	Environment string   `json:"environment,omitempty"`
	Receipt     *Receipt `json:"receipt,omitempty"`

	// LatestReceiptInfo carries auto-renewable subscription transactions for
	// post iOS 7 receipts. It arrives alongside the receipt, not inside it.
	LatestReceiptInfo []PurchaseItem `json:"latest_receipt_info,omitempty"`
	LatestReceipt     string         `json:"latest_receipt,omitempty"`
}

// Receipt is the decoded receipt object. Pre iOS 6 receipts have no in_app
// list; their purchase fields sit directly on the receipt, and the bundle id
// is reported under the legacy "bid" key.
type Receipt struct {
	ReceiptType        string `json:"receipt_type,omitempty"`
	BundleID           string `json:"bundle_id,omitempty"`
	Bid                string `json:"bid,omitempty"`
	ApplicationVersion string `json:"application_version,omitempty"`

	InApp []PurchaseItem `json:"in_app,omitempty"`

	// Legacy (flat) receipt fields.
	TransactionID          string `json:"transaction_id,omitempty"`
	OriginalTransactionID  string `json:"original_transaction_id,omitempty"`
	ProductID              string `json:"product_id,omitempty"`
	PurchaseDateMs         string `json:"purchase_date_ms,omitempty"`
	OriginalPurchaseDateMs string `json:"original_purchase_date_ms,omitempty"`
	Quantity               string `json:"quantity,omitempty"`
	ExpiresDateMs          string `json:"expires_date_ms,omitempty"`
	ExpiresDate            string `json:"expires_date,omitempty"`
}

func (r *Receipt) bundleID() string {
	if r.BundleID != "" {
		return r.BundleID
	}
	return r.Bid
}

// PurchaseItem is one raw in_app or latest_receipt_info entry. Apple encodes
// every numeric field as a string.
type PurchaseItem struct {
	TransactionID          string `json:"transaction_id"`
	OriginalTransactionID  string `json:"original_transaction_id"`
	ProductID              string `json:"product_id"`
	PurchaseDateMs         string `json:"purchase_date_ms"`
	OriginalPurchaseDateMs string `json:"original_purchase_date_ms"`
	Quantity               string `json:"quantity"`
	ExpiresDateMs          string `json:"expires_date_ms,omitempty"`
	ExpiresDate            string `json:"expires_date,omitempty"`
	IsTrialPeriod          string `json:"is_trial_period,omitempty"`
}

// expirationDate resolves the expiry of a purchase entry in epoch
// milliseconds: expires_date_ms when present, expires_date otherwise,
// 0 for anything that is not a subscription.
func (p *PurchaseItem) expirationDate() int64 {
	if v, ok := parseNumeric(p.ExpiresDateMs); ok {
		return v
	}
	if v, ok := parseNumeric(p.ExpiresDate); ok {
		return v
	}
	return 0
}

// parseNumeric parses Apple's string-encoded base-10 numerics. Absent or
// malformed values report ok=false instead of defaulting to zero.
func parseNumeric(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
