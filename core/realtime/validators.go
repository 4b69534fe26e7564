package realtime

import (
	"bytes"
	"encoding/json"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo/core"
)

var (
	jsonValueTag  = "jsonvalue"
	jsonValueText = "{0} must be a JSON value"
)

// InitValidators registers the validators used by inbound message payloads.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(jsonValueTag, jsonValueValidation)
	core.RegisterCustomTranslation(validate, translator, jsonValueTag, jsonValueText)
}

// jsonValueValidation requires a raw JSON field to be present and not null.
func jsonValueValidation(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(json.RawMessage)
	if !ok {
		b, isBytes := fl.Field().Interface().([]byte)
		if !isBytes {
			return false
		}
		raw = b
	}
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && json.Valid(raw)
}
