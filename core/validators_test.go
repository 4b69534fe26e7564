package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" validate:"required,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Internal string `json:"-"`
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	tests := []struct {
		name string
		in   signup
		want map[string]string
	}{
		{name: "valid", in: signup{Username: "hero_01", Email: "hero@test.cd"}},
		{
			name: "required",
			in:   signup{},
			want: map[string]string{"username": requiredText},
		},
		{
			name: "alphanum_ & email",
			in:   signup{Username: "he-ro", Email: "nope"},
			want: map[string]string{"username": alphaNumUnderText, "email": "email must be a valid email address"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.want, TranslateErrors(vErrs, translator))
		})
	}
}
