package lifecycle

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

// maxAmount is the exclusive upper bound of a NUMERIC(10,2) column.
var maxAmount = decimal.New(1, 8)

// SubmitInput is the customer-supplied part of a service request.
type SubmitInput struct {
	Type             string
	Amount           string
	Purpose          *string
	TargetDate       *string
	PaymentConfirmed bool
}

type validSubmission struct {
	Type       models.ServiceType
	Amount     string
	Purpose    *string
	TargetDate *time.Time
}

func validateSubmission(in SubmitInput) (validSubmission, error) {
	var out validSubmission

	t, ok := models.ParseServiceType(in.Type)
	if !ok {
		return out, &ValidationError{Field: "type", Message: "نوع الخدمة غير معروف"}
	}
	out.Type = t

	amount, err := normalizeAmount(in.Amount)
	if err != nil {
		return out, err
	}
	out.Amount = amount

	if !in.PaymentConfirmed {
		return out, &ValidationError{Field: "paymentConfirmed", Message: "يجب تأكيد التحويل أولاً"}
	}

	if in.TargetDate != nil && strings.TrimSpace(*in.TargetDate) != "" {
		d, err := parseDate(strings.TrimSpace(*in.TargetDate))
		if err != nil {
			return out, &ValidationError{Field: "targetDate", Message: "التاريخ المستهدف غير صالح"}
		}
		out.TargetDate = &d
	}

	if in.Purpose != nil {
		if p := strings.TrimSpace(*in.Purpose); p != "" {
			out.Purpose = &p
		}
	}
	return out, nil
}

// normalizeAmount parses a positive amount and renders it with two decimals.
func normalizeAmount(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ValidationError{Field: "amount", Message: "المبلغ مطلوب"}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", &ValidationError{Field: "amount", Message: "المبلغ يجب أن يكون رقماً"}
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return "", &ValidationError{Field: "amount", Message: "المبلغ يجب أن يكون أكبر من صفر"}
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return "", &ValidationError{Field: "amount", Message: "المبلغ أكبر من الحد المسموح"}
	}
	return d.StringFixed(2), nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
