// Package forms holds the input schemas checked before any request reaches
// the backend. Error messages are the ones shown to the user.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ValidationError maps wire field names to the first message for that field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

// Field returns the message for a field, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// IsValidationError reports whether err carries field messages.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Amounts are compared as numbers (gt=0).
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterStructValidation(expenseTarget, ExpenseForm{})
	return v
}

// Validate checks a form. It returns nil or a *ValidationError.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate form: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = messageFor(fe)
	}
	return out
}

// messages is looked up by "<Form>.<field>.<tag>" first, then "<field>.<tag>".
var messages = map[string]string{
	"email.required": "El correo es obligatorio",
	"email.email":    "Ingresa un correo válido",

	"password.required":         "La contraseña es obligatoria",
	"password.min":              "La contraseña debe tener al menos 8 caracteres",
	"password_confirm.required": "Debes confirmar tu contraseña",
	"password_confirm.eqfield":  "Las contraseñas no coinciden",

	"password_actual.min":           "Ingresa tu contraseña actual",
	"password_nuevo.min":            "La nueva contraseña debe tener al menos 8 caracteres",
	"password_confirmacion.min":     "Confirma la nueva contraseña",
	"password_confirmacion.eqfield": "Las contraseñas no coinciden",

	"uid.required":   "El enlace de recuperación no es válido",
	"token.required": "El enlace de recuperación no es válido",

	"first_name.min": "El nombre es obligatorio",
	"first_name.max": "El nombre es muy largo",
	"last_name.max":  "El apellido es muy largo",
	"phone.max":      "El teléfono es muy largo",

	"recaptcha_token.required_if": "Completa la verificación de seguridad",

	"monto.required":                    "Ingresa un monto válido",
	"monto.gt":                          "El monto debe ser mayor a 0",
	"monto_asignado.required":           "Ingresa un monto válido",
	"monto_asignado.gt":                 "El monto debe ser mayor a 0",
	"fecha.required":                    "La fecha es obligatoria",
	"fecha.datetime":                    "Ingresa una fecha válida",
	"nombre.required":                   "El nombre es obligatorio",
	"categoria.max":                     "La categoría es muy larga",
	"categoria.budget_item_or_category": "Selecciona una partida o escribe una categoría",

	"ExpenseForm.tipo.oneof":    "Selecciona un tipo de gasto",
	"IncomeForm.tipo.oneof":     "Selecciona un tipo de ingreso",
	"BudgetItemForm.tipo.oneof": "Selecciona el tipo de partida",
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := messages[fe.Namespace()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return "Valor inválido"
}
