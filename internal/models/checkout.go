package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string or number. Null and other shapes leave it unset.
type FlexString struct {
	Value string
	Set   bool
}

func (f *FlexString) UnmarshalJSON(data []byte) error {
	*f = FlexString{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		f.Value, f.Set = s, true
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		f.Value, f.Set = n.String(), true
	}
	return nil
}

func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// FlexNumber accepts a JSON number or a numeric string. Anything else leaves it invalid.
type FlexNumber struct {
	Value float64
	Valid bool
}

func (f *FlexNumber) UnmarshalJSON(data []byte) error {
	*f = FlexNumber{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		f.Value, f.Valid = n, true
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.Value, f.Valid = parsed, true
		}
	}
	return nil
}

func (f FlexNumber) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// CartItem is one line of the caller's cart. Every field is optional.
type CartItem struct {
	ID       FlexString `json:"id"`
	Name     FlexString `json:"name"`
	Quantity FlexNumber `json:"quantity"`
	Price    FlexNumber `json:"price"`
}

type CheckoutRequest struct {
	Items []CartItem `json:"items"`
}

type CheckoutResponse struct {
	InitPoint    string `json:"init_point"`
	PreferenceID string `json:"preference_id"`
}

// PaymentNotificationQuery is the query string of a provider notification.
// topic/id is the legacy IPN form of type/data.id. Fields are not validated at
// bind time: notifications of types that are ignored must be acknowledged
// whatever their ids look like.
type PaymentNotificationQuery struct {
	Type   string `form:"type"`
	DataID string `form:"data.id"`
	Topic  string `form:"topic"`
	ID     string `form:"id"`
}

// PaymentNotificationBody is the JSON body of a provider notification.
type PaymentNotificationBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID FlexString `json:"id"`
	} `json:"data"`
}

type PaymentSuccessQuery struct {
	PaymentID         *string `form:"payment_id"`
	Status            *string `form:"status"`
	ExternalReference *string `form:"external_reference"`
}

type PaymentSuccessResponse struct {
	Message   string  `json:"message"`
	PaymentID *string `json:"payment_id"`
	Status    *string `json:"status"`
}

type PaymentFailureResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

type PaymentPendingResponse struct {
	Message string `json:"message"`
}
