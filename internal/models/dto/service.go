package dto

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Amount accepts a JSON string or number and keeps its literal text.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("amount must be a number or numeric string")
	}
	*a = Amount(n.String())
	return nil
}

type CreateServiceRequest struct {
	Type             string  `json:"type"`
	Amount           Amount  `json:"amount"`
	Purpose          *string `json:"purpose"`
	TargetDate       *string `json:"targetDate"`
	PaymentConfirmed bool    `json:"paymentConfirmed"`
}

type UpdateServiceStatusRequest struct {
	Status string `json:"status"`
}
