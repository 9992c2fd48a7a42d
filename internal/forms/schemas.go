package forms

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finova-bot/internal/api"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/money"
)

// LoginForm is the e-mail and password sign-in.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Credentials returns the login payload.
func (f LoginForm) Credentials() api.Credentials {
	return api.Credentials{Email: strings.TrimSpace(f.Email), Password: f.Password}
}

// RegisterForm is the account creation form. CaptchaRequired is set from
// configuration and makes RecaptchaToken mandatory.
type RegisterForm struct {
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Phone           string `json:"phone" validate:"max=30"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	RecaptchaToken  string `json:"recaptcha_token" validate:"required_if=CaptchaRequired true"`
	CaptchaRequired bool   `json:"-"`
}

// Registration returns the payload, omitting blank optional fields.
func (f RegisterForm) Registration() api.Registration {
	return api.Registration{
		Email:          strings.TrimSpace(f.Email),
		Password:       f.Password,
		FirstName:      strings.TrimSpace(f.FirstName),
		LastName:       strings.TrimSpace(f.LastName),
		Phone:          strings.TrimSpace(f.Phone),
		RecaptchaToken: strings.TrimSpace(f.RecaptchaToken),
	}
}

// PasswordChangeForm changes the password of the signed-in user.
type PasswordChangeForm struct {
	Current string `json:"password_actual" validate:"min=6"`
	New     string `json:"password_nuevo" validate:"min=8"`
	Confirm string `json:"password_confirmacion" validate:"min=8,eqfield=New"`
}

// Change returns the payload.
func (f PasswordChangeForm) Change() api.PasswordChange {
	return api.PasswordChange{Current: f.Current, New: f.New}
}

// PasswordResetRequestForm asks for a reset link.
type PasswordResetRequestForm struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetForm completes a reset from the e-mailed link.
type PasswordResetForm struct {
	UID      string `json:"uid" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"min=8"`
	Confirm  string `json:"password_confirm" validate:"eqfield=Password"`
}

// Confirmation returns the payload.
func (f PasswordResetForm) Confirmation() api.PasswordResetConfirmation {
	return api.PasswordResetConfirmation{
		UID:      strings.TrimSpace(f.UID),
		Token:    strings.TrimSpace(f.Token),
		Password: f.Password,
	}
}

// ProfileForm edits the profile. Nil fields are left unchanged.
type ProfileForm struct {
	FirstName   *string    `json:"first_name" validate:"omitnil,min=1,max=150"`
	LastName    *string    `json:"last_name" validate:"omitnil,max=150"`
	Phone       *string    `json:"phone" validate:"omitnil,max=30"`
	Photo       *api.Photo `json:"-"`
	RemovePhoto bool       `json:"-"`
}

// Update returns the multipart update.
func (f ProfileForm) Update() api.ProfileUpdate {
	return api.ProfileUpdate{
		FirstName:   trimmedPtr(f.FirstName),
		LastName:    trimmedPtr(f.LastName),
		Phone:       trimmedPtr(f.Phone),
		Photo:       f.Photo,
		RemovePhoto: f.RemovePhoto,
	}
}

// BudgetItemForm creates or edits a budget item.
type BudgetItemForm struct {
	Name      string            `json:"nombre" validate:"required"`
	Kind      models.BudgetKind `json:"tipo" validate:"oneof=fijo variable"`
	Allocated *decimal.Decimal  `json:"monto_asignado" validate:"required,gt=0"`
}

// Input returns the payload. Call only after Validate succeeded.
func (f BudgetItemForm) Input() api.BudgetItemInput {
	return api.BudgetItemInput{
		Name:      strings.TrimSpace(f.Name),
		Kind:      f.Kind,
		Allocated: valueOf(f.Allocated),
	}
}

// ExpenseForm records or edits an expense. Either BudgetItemID or a
// non-blank Category must be present.
type ExpenseForm struct {
	Amount       *decimal.Decimal   `json:"monto" validate:"required,gt=0"`
	Date         string             `json:"fecha" validate:"required,datetime=2006-01-02"`
	Kind         models.ExpenseKind `json:"tipo" validate:"oneof=fijo variable"`
	BudgetItemID *int64             `json:"partida"`
	Category     string             `json:"categoria" validate:"max=150"`
	Note         string             `json:"observacion"`
}

const tagBudgetItemOrCategory = "budget_item_or_category"

func expenseTarget(sl validator.StructLevel) {
	f := sl.Current().Interface().(ExpenseForm)
	if f.hasBudgetItem() || strings.TrimSpace(f.Category) != "" {
		return
	}
	sl.ReportError(f.Category, "categoria", "Category", tagBudgetItemOrCategory, "")
}

func (f ExpenseForm) hasBudgetItem() bool {
	return f.BudgetItemID != nil && *f.BudgetItemID != 0
}

// Input returns the payload with blank optional text sent as null.
func (f ExpenseForm) Input() api.ExpenseInput {
	in := api.ExpenseInput{
		Amount:   valueOf(f.Amount),
		Date:     strings.TrimSpace(f.Date),
		Kind:     f.Kind,
		Category: nonBlank(f.Category),
		Note:     nonBlank(f.Note),
	}
	if f.hasBudgetItem() {
		id := *f.BudgetItemID
		in.BudgetItemID = &id
	}
	return in
}

// IncomeForm records or edits an income.
type IncomeForm struct {
	Amount *decimal.Decimal  `json:"monto" validate:"required,gt=0"`
	Date   string            `json:"fecha" validate:"required,datetime=2006-01-02"`
	Kind   models.IncomeKind `json:"tipo" validate:"oneof=fijo eventual"`
	Note   string            `json:"observacion"`
}

// Input returns the payload.
func (f IncomeForm) Input() api.IncomeInput {
	return api.IncomeInput{
		Amount: valueOf(f.Amount),
		Date:   strings.TrimSpace(f.Date),
		Kind:   f.Kind,
		Note:   nonBlank(f.Note),
	}
}

// Amount parses a user-typed peso amount. It returns nil when raw holds no
// digits, which the schemas report as an invalid amount.
func Amount(raw string) *decimal.Decimal {
	if !strings.ContainsAny(raw, "0123456789") {
		return nil
	}
	d := money.ParseCLP(raw)
	return &d
}

func valueOf(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func nonBlank(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}
