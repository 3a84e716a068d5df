package appstore

import "time"

// PurchaseRecord is one normalized purchase, at most one per distinct
// original transaction id. Dates are epoch milliseconds; ExpirationDate is 0
// for anything that is not a subscription.
type PurchaseRecord struct {
	BundleID       string `json:"bundle_id"`
	TransactionID  string `json:"transaction_id"`
	ProductID      string `json:"product_id"`
	PurchaseDate   int64  `json:"purchase_date"`
	Quantity       int64  `json:"quantity"`
	ExpirationDate int64  `json:"expiration_date"`
}

// ExtractOptions controls purchase extraction.
type ExtractOptions struct {
	// IgnoreExpired drops subscription entries whose expiry is already in
	// the past. It only applies to in_app-style receipts; flat pre iOS 6
	// receipts predate subscriptions and are returned unfiltered.
	IgnoreExpired bool
}

// slotEntry tracks, per original transaction id, the purchase date of the
// record currently occupying an output slot. dateOK is false when the raw
// purchase date did not parse; such entries neither win nor lose a
// comparison, so the first occurrence stays authoritative.
type slotEntry struct {
	date   int64
	dateOK bool
	slot   int
}

// ExtractPurchases turns a decoded verifyReceipt payload into normalized
// purchase records. When the same original transaction appears more than
// once (renewals show up both in in_app and latest_receipt_info), the entry
// with the latest purchase date wins but keeps the output position of the
// first occurrence. Returns nil when the payload carries no receipt.
func ExtractPurchases(resp *ReceiptResponse, opts ExtractOptions) []PurchaseRecord {
	return extractPurchasesAt(resp, opts, time.Now())
}

func extractPurchasesAt(resp *ReceiptResponse, opts ExtractOptions, now time.Time) []PurchaseRecord {
	if resp == nil || resp.Receipt == nil {
		return nil
	}
	receipt := resp.Receipt

	if receipt.InApp == nil {
		// Flat pre iOS 6 receipt: the purchase fields sit directly on the
		// receipt object and describe exactly one purchase.
		quantity, _ := parseNumeric(receipt.Quantity)
		purchaseDate, _ := parseNumeric(receipt.OriginalPurchaseDateMs)
		return []PurchaseRecord{{
			BundleID:       receipt.bundleID(),
			TransactionID:  receipt.TransactionID,
			ProductID:      receipt.ProductID,
			PurchaseDate:   purchaseDate,
			Quantity:       quantity,
			ExpirationDate: receiptExpirationDate(receipt),
		}}
	}

	// Auto-renewable subscription renewals arrive only in
	// latest_receipt_info, so the working list is the concatenation.
	list := receipt.InApp
	if len(resp.LatestReceiptInfo) > 0 {
		list = append(append([]PurchaseItem{}, list...), resp.LatestReceiptInfo...)
	}

	nowMs := now.UnixMilli()
	seen := make(map[string]*slotEntry, len(list))
	records := make([]PurchaseRecord, 0, len(list))

	for i := range list {
		item := &list[i]

		expiration := item.expirationDate()
		if opts.IgnoreExpired && expiration > 0 && nowMs-expiration >= 0 {
			continue
		}

		date, dateOK := parseNumeric(item.PurchaseDateMs)
		quantity, _ := parseNumeric(item.Quantity)
		record := PurchaseRecord{
			BundleID:       receipt.bundleID(),
			TransactionID:  item.TransactionID,
			ProductID:      item.ProductID,
			PurchaseDate:   date,
			Quantity:       quantity,
			ExpirationDate: expiration,
		}

		if entry, ok := seen[item.OriginalTransactionID]; ok {
			// Later purchase event wins, but it takes over the slot of the
			// first occurrence instead of appending a duplicate.
			if entry.dateOK && dateOK && entry.date < date {
				records[entry.slot] = record
				entry.date = date
			}
			continue
		}

		records = append(records, record)
		seen[item.OriginalTransactionID] = &slotEntry{date: date, dateOK: dateOK, slot: len(records) - 1}
	}

	return records
}

func receiptExpirationDate(r *Receipt) int64 {
	if v, ok := parseNumeric(r.ExpiresDateMs); ok {
		return v
	}
	if v, ok := parseNumeric(r.ExpiresDate); ok {
		return v
	}
	return 0
}
