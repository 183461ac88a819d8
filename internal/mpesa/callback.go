package mpesa

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CallbackEnvelope is the Daraja STK callback payload.
type CallbackEnvelope struct {
	Body struct {
		STKCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []MetadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// MetadataItem values arrive as either JSON numbers or strings.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

func (i MetadataItem) asString() string {
	var s string
	if err := json.Unmarshal(i.Value, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(i.Value, &n); err == nil {
		return n.String()
	}
	return ""
}

// CallbackResult is the gateway-neutral view the settlement engine consumes.
type CallbackResult struct {
	Success           bool
	ResultCode        int
	ResultDesc        string
	CheckoutRequestID string
	MerchantRequestID string
	AmountKes         decimal.Decimal
	ReceiptNumber     string
	PhoneNumber       string
	TransactionDate   string
}

// Result flattens the envelope. ResultCode 0 is success; anything else is a
// decline or cancellation.
func (e CallbackEnvelope) Result() CallbackResult {
	cb := e.Body.STKCallback
	r := CallbackResult{
		Success:           cb.ResultCode == 0,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			r.AmountKes, _ = decimal.NewFromString(item.asString())
		case "MpesaReceiptNumber":
			r.ReceiptNumber = item.asString()
		case "TransactionDate":
			r.TransactionDate = item.asString()
		case "PhoneNumber":
			r.PhoneNumber = item.asString()
		}
	}
	return r
}

// Ack is what the callback endpoint always returns, success or not, so the
// gateway never retry-storms us.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func Accepted() Ack { return Ack{ResultCode: 0, ResultDesc: "Accepted"} }
