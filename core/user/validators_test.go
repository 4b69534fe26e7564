package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
	inmemdb "github.com/trezcool/masomo/storage/database/inmem"
	testutil "github.com/trezcool/masomo/tests"
)

func TestNewUser_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(repo)
	testutil.CreateUser(t, repo, "Taken", "taken", "taken@test.cd", "", nil, true)

	pwd := "Qwerty!2345"
	newUser := func(uname, email, pwd string, roles ...string) user.NewUser {
		return user.NewUser{Name: "Hero", Username: uname, Email: email, Password: pwd, PasswordConfirm: pwd, Roles: roles}
	}

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields map[string]string
		wantErr    error
	}{
		{name: "valid", nu: newUser("hero", "", pwd, user.RoleStudent)},
		{
			name: "no username nor email",
			nu:   newUser("", "", pwd),
			wantFields: map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			},
		},
		{name: "short password", nu: newUser("hero", "", "Qw!2"), wantFields: map[string]string{"password": "password must contain at least 8 characters"}},
		{name: "whitespace", nu: newUser("hero", "", "Qwerty! 2345"), wantFields: map[string]string{"password": "password must not contain whitespace"}},
		{name: "all numeric", nu: newUser("hero", "", "1234567890"), wantFields: map[string]string{"password": "password cannot be entirely numeric"}},
		{
			name:       "not complex",
			nu:         newUser("hero", "", "qwerty2345"),
			wantFields: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		},
		{
			name:       "similar to email",
			nu:         newUser("", "Superman.1@test.cd", "Superman.1@test"),
			wantFields: map[string]string{"password": "password cannot be similar to user attributes"},
		},
		{name: "invalid role", nu: newUser("hero", "", pwd, "wizard:"), wantFields: map[string]string{"roles": "invalid roles"}},
		{name: "bad username", nu: newUser("he-ro", "", pwd), wantFields: map[string]string{"username": "only alphanumeric characters and underscores are allowed"}},
		{name: "username taken", nu: newUser(" TAKEN ", "", pwd), wantErr: user.ErrUsernameExists},
		{name: "email taken", nu: newUser("", "Taken@test.cd", pwd), wantErr: user.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(context.Background(), validate, svc)
			switch {
			case tt.wantFields != nil:
				var vErrs validator.ValidationErrors
				require.ErrorAs(t, err, &vErrs)
				assert.Equal(t, tt.wantFields, core.TranslateErrors(vErrs, translator))
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				var vErr *core.ValidationError
				assert.ErrorAs(t, err, &vErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
