package appstore

// Status codes returned by the verifyReceipt endpoint, plus the two local
// sentinel values used when Apple never gave us a usable status.
const (
	StatusSuccess = 0
	// StatusFailure is reported when the request itself failed and no Apple
	// status is available. Apple does not document 1; keep it as-is.
	StatusFailure = 1
	// StatusEmptyPurchaseList marks a technically valid receipt that purchased
	// nothing. Apple reports success for these, which is a known tamper signal.
	StatusEmptyPurchaseList = 2

	StatusSandboxReceiptOnProduction = 21007
	StatusMalformedReceiptData       = 21002
)

var statusMessages = map[int]string{
	21000: "The App Store could not read the JSON object you provided.",
	21002: "The data in the receipt-data property was malformed.",
	21003: "The receipt could not be authenticated.",
	21004: "The shared secret you provided does not match the shared secret on file for your account.",
	21005: "The receipt server is not currently available.",
	21006: "This receipt is valid but the subscription has expired. When this status code is returned to your server, the receipt data is also decoded and returned as part of the response.",
	21007: "This receipt is a sandbox receipt, but it was sent to the production environment for verification.",
	21008: "This receipt is a production receipt, but it was sent to the sandbox environment for verification.",
	2:     "The receipt is valid, but purchased nothing.",
}

// StatusMessage returns Apple's documented description for a verifyReceipt
// status code, or "Unknown" for anything undocumented.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Unknown"
}

// statusClass collapses a raw Apple status into the handful of outcomes the
// orchestrator switches on, so the magic numbers live in one place.
type statusClass int

const (
	classSuccess statusClass = iota
	// classWrongEnvironment means the receipt belongs to the other
	// environment; only honored on the production attempt.
	classWrongEnvironment
	classFailure
)

func classifyStatus(status int, production bool) statusClass {
	switch {
	case status == StatusSuccess:
		return classSuccess
	case production && (status == StatusSandboxReceiptOnProduction || status == StatusMalformedReceiptData):
		return classWrongEnvironment
	default:
		return classFailure
	}
}
