package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"tap_amazon_ads/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseTimestamp(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}

	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	if err := validate.RegisterTranslation("timestamp", trans,
		func(ut ut.Translator) error {
			return ut.Add("timestamp", "{0} must be an ISO 8601 timestamp", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("timestamp", fe.Field())
			return t
		},
	); err != nil {
		panic(err)
	}
}

// Validate reports every failing field, joined with "; ".
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return errors.New("invalid config: " + strings.Join(msgs, "; "))
}
