package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// validationMessage turns the first validator failure into a user-facing message.
func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return msgInvalidPayload
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("الحقل %s مطلوب", fe.Field())
	case "email":
		return "البريد الإلكتروني غير صالح"
	case "min":
		return fmt.Sprintf("الحقل %s يجب ألا يقل عن %s أحرف", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("الحقل %s يجب ألا يزيد عن %s حرفاً", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("الحقل %s غير صالح", fe.Field())
}
