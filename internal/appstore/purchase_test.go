package appstore

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modernResponse(items ...PurchaseItem) *ReceiptResponse {
	return &ReceiptResponse{
		Status: StatusSuccess,
		Receipt: &Receipt{
			BundleID: "com.example.app",
			InApp:    items,
		},
	}
}

func TestExtractPurchasesNilPayload(t *testing.T) {
	assert.Nil(t, ExtractPurchases(nil, ExtractOptions{}))
	assert.Nil(t, ExtractPurchases(&ReceiptResponse{Status: StatusSuccess}, ExtractOptions{}))
}

func TestExtractPurchasesSingleItem(t *testing.T) {
	resp := modernResponse(PurchaseItem{
		TransactionID:         "1000",
		OriginalTransactionID: "T1",
		ProductID:             "p1",
		PurchaseDateMs:        "1700000000000",
		Quantity:              "1",
	})

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 1)
	assert.Equal(t, "com.example.app", records[0].BundleID)
	assert.Equal(t, "1000", records[0].TransactionID)
	assert.Equal(t, "p1", records[0].ProductID)
	assert.Equal(t, int64(1700000000000), records[0].PurchaseDate)
	assert.Equal(t, int64(1), records[0].Quantity)
	assert.Equal(t, int64(0), records[0].ExpirationDate, "non-subscriptions report no expiry")
}

func TestExtractPurchasesDedupLaterWinsKeepsSlot(t *testing.T) {
	resp := modernResponse(
		PurchaseItem{TransactionID: "a", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1"},
		PurchaseItem{TransactionID: "b", OriginalTransactionID: "T2", ProductID: "p2", PurchaseDateMs: "150", Quantity: "1"},
		PurchaseItem{TransactionID: "c", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "200", Quantity: "1"},
	)

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 2)
	// The renewal with purchase date 200 wins for T1 but stays in slot 0,
	// where T1 first appeared.
	assert.Equal(t, "c", records[0].TransactionID)
	assert.Equal(t, int64(200), records[0].PurchaseDate)
	assert.Equal(t, "b", records[1].TransactionID)
}

func TestExtractPurchasesDedupOlderDoesNotReplace(t *testing.T) {
	resp := modernResponse(
		PurchaseItem{TransactionID: "a", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "200", Quantity: "1"},
		PurchaseItem{TransactionID: "b", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1"},
	)

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].TransactionID)
	assert.Equal(t, int64(200), records[0].PurchaseDate)
}

func TestExtractPurchasesEqualDateKeepsFirst(t *testing.T) {
	resp := modernResponse(
		PurchaseItem{TransactionID: "a", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1"},
		PurchaseItem{TransactionID: "b", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1"},
	)

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].TransactionID)
}

func TestExtractPurchasesMergesLatestReceiptInfo(t *testing.T) {
	resp := modernResponse(PurchaseItem{
		TransactionID: "a", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1",
	})
	resp.LatestReceiptInfo = []PurchaseItem{
		{TransactionID: "renewal", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "300", Quantity: "1"},
		{TransactionID: "other", OriginalTransactionID: "T2", ProductID: "p2", PurchaseDateMs: "250", Quantity: "1"},
	}

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 2)
	assert.Equal(t, "renewal", records[0].TransactionID, "renewal from latest_receipt_info replaces the in_app entry in place")
	assert.Equal(t, "other", records[1].TransactionID)

	// The merge must not mutate the decoded payload.
	assert.Len(t, resp.Receipt.InApp, 1)
}

func TestExtractPurchasesIgnoreExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour).UnixMilli()
	future := time.Now().Add(time.Hour).UnixMilli()

	resp := modernResponse(
		PurchaseItem{TransactionID: "expired", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1", ExpiresDateMs: formatMs(past)},
		PurchaseItem{TransactionID: "active", OriginalTransactionID: "T2", ProductID: "p2", PurchaseDateMs: "200", Quantity: "1", ExpiresDateMs: formatMs(future)},
	)

	records := ExtractPurchases(resp, ExtractOptions{IgnoreExpired: true})
	require.Len(t, records, 1)
	assert.Equal(t, "active", records[0].TransactionID)

	// Without the option both survive.
	records = ExtractPurchases(resp, ExtractOptions{})
	assert.Len(t, records, 2)
}

func TestExtractPurchasesExpiresDateFallback(t *testing.T) {
	resp := modernResponse(PurchaseItem{
		TransactionID:         "a",
		OriginalTransactionID: "T1",
		ProductID:             "p1",
		PurchaseDateMs:        "100",
		Quantity:              "1",
		ExpiresDate:           "1800000000000",
	})

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 1)
	assert.Equal(t, int64(1800000000000), records[0].ExpirationDate)
}

func TestExtractPurchasesSkippedExpiredDoesNotHoldSlot(t *testing.T) {
	past := time.Now().Add(-time.Hour).UnixMilli()

	// The expired T1 entry is skipped entirely, so the later T1 entry is a
	// first sighting and appends after T2.
	resp := modernResponse(
		PurchaseItem{TransactionID: "expired", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1", ExpiresDateMs: formatMs(past)},
		PurchaseItem{TransactionID: "b", OriginalTransactionID: "T2", ProductID: "p2", PurchaseDateMs: "150", Quantity: "1"},
		PurchaseItem{TransactionID: "c", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "200", Quantity: "1"},
	)

	records := ExtractPurchases(resp, ExtractOptions{IgnoreExpired: true})
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].TransactionID)
	assert.Equal(t, "c", records[1].TransactionID)
}

func TestExtractPurchasesLegacyReceipt(t *testing.T) {
	resp := &ReceiptResponse{
		Status: StatusSuccess,
		Receipt: &Receipt{
			Bid:                    "com.x",
			TransactionID:          "1",
			ProductID:              "p1",
			OriginalPurchaseDateMs: "1600000000000",
			Quantity:               "2",
		},
	}

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 1)
	assert.Equal(t, "com.x", records[0].BundleID)
	assert.Equal(t, "1", records[0].TransactionID)
	assert.Equal(t, "p1", records[0].ProductID)
	assert.Equal(t, int64(1600000000000), records[0].PurchaseDate)
	assert.Equal(t, int64(2), records[0].Quantity)
	assert.Equal(t, int64(0), records[0].ExpirationDate)
}

func TestExtractPurchasesLegacyIgnoresExpiryFilter(t *testing.T) {
	past := time.Now().Add(-time.Hour).UnixMilli()
	resp := &ReceiptResponse{
		Status: StatusSuccess,
		Receipt: &Receipt{
			Bid:                    "com.x",
			TransactionID:          "1",
			ProductID:              "p1",
			OriginalPurchaseDateMs: "1600000000000",
			Quantity:               "1",
			ExpiresDateMs:          formatMs(past),
		},
	}

	// Flat receipts are never filtered, even when expired.
	records := ExtractPurchases(resp, ExtractOptions{IgnoreExpired: true})
	require.Len(t, records, 1)
	assert.Equal(t, past, records[0].ExpirationDate)
}

func TestExtractPurchasesMalformedPurchaseDateNeverWins(t *testing.T) {
	resp := modernResponse(
		PurchaseItem{TransactionID: "a", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "100", Quantity: "1"},
		PurchaseItem{TransactionID: "b", OriginalTransactionID: "T1", ProductID: "p1", PurchaseDateMs: "not-a-date", Quantity: "1"},
	)

	records := ExtractPurchases(resp, ExtractOptions{})
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].TransactionID)
}

func formatMs(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
