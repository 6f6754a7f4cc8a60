package apolloAuth

import (
	"errors"

	"github.com/MrEthical07/apolloAuth/password"
	"github.com/asaskevich/govalidator"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	maxUserNameLength = 100
	maxEmailLength    = 254
)

var emailRule = validation.NewStringRule(govalidator.IsEmail, "must be a valid email address")

// Validate checks credentials before they are sent. Failures wrap
// [ErrInvalidInput] and a validation.Errors keyed by JSON field name.
func (c Credentials) Validate() error {
	return invalidInput(validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, validation.Length(3, maxEmailLength), emailRule),
		validation.Field(&c.Password, validation.Required),
	))
}

// Validate checks a signup profile before it is sent. The password must
// satisfy the account password policy.
func (p Profile) Validate() error {
	return invalidInput(validation.ValidateStruct(&p,
		validation.Field(&p.UserName, validation.Required, validation.Length(1, maxUserNameLength)),
		validation.Field(&p.Email, validation.Required, validation.Length(3, maxEmailLength), emailRule),
		validation.Field(&p.Password, validation.Required, validation.By(passwordPolicy)),
	))
}

func passwordPolicy(value interface{}) error {
	s, _ := value.(string)
	return password.CheckPolicy(s)
}

func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrInvalidInput, err)
}
