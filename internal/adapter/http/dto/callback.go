package dto

import (
	"fmt"

	"github.com/noblecapital/payments/internal/usecase"
)

// STKCallbackRequest is the envelope Daraja posts to the callback URL.
type STKCallbackRequest struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []STKCallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallbackItem is one metadata entry. Value is untyped: Daraja mixes
// strings and numbers in the same array.
type STKCallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// ToUseCaseInput normalizes the callback envelope, pulling the receipt
// number out of the metadata items when present.
func (r *STKCallbackRequest) ToUseCaseInput() usecase.CallbackInput {
	cb := r.Body.StkCallback

	receipt := ""
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" && item.Value != nil {
			receipt = fmt.Sprintf("%v", item.Value)
			break
		}
	}

	return usecase.CallbackInput{
		CorrelationID:     cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
		ReceiptID:         receipt,
	}
}

// STKCallbackAck is the acknowledgement body Daraja expects.
type STKCallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// AcceptedAck is the acknowledgement returned for every callback delivery.
func AcceptedAck() STKCallbackAck {
	return STKCallbackAck{ResultCode: 0, ResultDesc: "Accepted"}
}
