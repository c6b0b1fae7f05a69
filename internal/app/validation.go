package app

import (
	"errors"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ignite-call/internal/apperr"
)

var (
	usernamePattern = regexp.MustCompile(`(?i)^[a-z\-]+$`)
	registerOnce    sync.Once
)

// reservedUsernames collide with static routes under /api/users.
var reservedUsernames = map[string]bool{
	"profile":        true,
	"time-intervals": true,
}

func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
				return usernamePattern.MatchString(fl.Field().String())
			})
		}
	})
}

// validationMessages is keyed by "Field.tag", with "Field" as a fallback.
var validationMessages = map[string]string{
	"Username":           "O usuário precisa de no mínimo 3 caracteres.",
	"Username.username":  "Somente letras e hifen",
	"Name":               "Informe seu nome completo!",
	"Email":              "Informe um e-mail válido.",
	"Bio":                "A descrição deve ter no máximo 500 caracteres.",
	"Observations":       "As observações devem ter no máximo 1000 caracteres.",
	"Date":               "A data deve ser informada.",
	"Intervals":          "Você precisa selecionar pelo menos um dia da semana.",
	"WeekDay":            "Dia da semana inválido.",
	"StartTimeInMinutes": "Horário de início inválido.",
	"EndTimeInMinutes":   "Horário de término inválido.",
}

const msgInvalidBody = "Requisição inválida."

// bindingError turns a ShouldBind failure into a validation error with a
// user facing message for the first failing field.
func bindingError(err error) *apperr.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]; ok {
			return apperr.NewValidation(msg)
		}
		if msg, ok := validationMessages[fe.Field()]; ok {
			return apperr.NewValidation(msg)
		}
	}
	return apperr.NewValidation(msgInvalidBody)
}
