package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/money"
	"gitlab.com/yelinaung/finova-bot/internal/report"
)

// maxListed caps how many records a list reply shows.
const maxListed = 20

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// displayName prefers the backend's full name.
func displayName(p models.Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	return p.Email
}

func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

func formatProfile(p models.Profile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>%s</b>\n", escapeHTML(displayName(p)))
	fmt.Fprintf(&sb, "Email: %s\n", escapeHTML(p.Email))
	if p.FirstName != "" {
		fmt.Fprintf(&sb, "Nombre: %s\n", escapeHTML(p.FirstName))
	}
	if p.LastName != "" {
		fmt.Fprintf(&sb, "Apellido: %s\n", escapeHTML(p.LastName))
	}
	if p.Phone != nil && *p.Phone != "" {
		fmt.Fprintf(&sb, "Teléfono: %s\n", escapeHTML(*p.Phone))
	}
	if p.AvatarURL != nil && *p.AvatarURL != "" {
		fmt.Fprintf(&sb, "Foto: %s\n", escapeHTML(*p.AvatarURL))
	}
	if !p.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "Miembro desde: %s\n", p.CreatedAt.Format(models.DateLayout))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func statusIcon(s models.BudgetStatus) string {
	switch s {
	case models.BudgetExceeded:
		return "🔴"
	case models.BudgetWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

// progressBar renders percent (0-100) as ten blocks.
func progressBar(percent int) string {
	filled := max(min(percent/10, 10), 0)
	return strings.Repeat("▓", filled) + strings.Repeat("░", 10-filled)
}

func formatBudgetRows(rows []report.BudgetRow) string {
	if len(rows) == 0 {
		return "📋 Aún no tienes partidas. Crea una con <code>/partida nueva \"Nombre\" fijo 100000</code>"
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Partidas del mes</b>\n")
	for _, row := range rows {
		item := row.Item
		fmt.Fprintf(&sb, "\n%s <b>%s</b> #%d (%s)\n", statusIcon(row.Status), escapeHTML(item.Name), item.ID, item.Kind)
		fmt.Fprintf(&sb, "%s %d%% · %s\n", progressBar(row.Bar), row.Percent, row.Status.Label())
		fmt.Fprintf(&sb, "Gastado %s de %s · Disponible %s\n",
			money.FormatCLP(item.SpentThisMonth),
			money.FormatCLP(item.Allocated),
			money.FormatCLP(item.AvailableThisMonth))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatExpenseLine(e models.Expense) string {
	line := fmt.Sprintf("#%d %s · <b>%s</b> · %s (%s)",
		e.ID, e.Date.Format(models.DateLayout), money.FormatCLP(e.Amount), escapeHTML(e.Label()), e.Kind)
	if e.Note != "" {
		line += "\n   " + escapeHTML(e.Note)
	}
	return line
}

func formatIncomeLine(i models.Income) string {
	line := fmt.Sprintf("#%d %s · <b>%s</b> (%s)",
		i.ID, i.Date.Format(models.DateLayout), money.FormatCLP(i.Amount), i.Kind)
	if i.Note != "" {
		line += "\n   " + escapeHTML(i.Note)
	}
	return line
}

// newestFirst orders by date, then id, descending.
func newestFirst[T any](records []T, date func(T) (int64, int64)) []T {
	out := append([]T(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		di, ii := date(out[i])
		dj, ij := date(out[j])
		if di != dj {
			return di > dj
		}
		return ii > ij
	})
	return out
}

func formatExpenses(expenses []models.Expense) string {
	if len(expenses) == 0 {
		return "💸 No tienes gastos registrados."
	}
	sorted := newestFirst(expenses, func(e models.Expense) (int64, int64) { return e.Date.Unix(), e.ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "💸 <b>Gastos</b> (%d)\n\n", len(expenses))
	total := decimal.Zero
	for i, e := range sorted {
		total = total.Add(e.Amount)
		if i < maxListed {
			sb.WriteString(formatExpenseLine(e))
			sb.WriteString("\n")
		}
	}
	if len(sorted) > maxListed {
		fmt.Fprintf(&sb, "… y %d más. Usa /exportar para verlos todos.\n", len(sorted)-maxListed)
	}
	fmt.Fprintf(&sb, "\nTotal: <b>%s</b>", money.FormatCLP(total))
	return sb.String()
}

func formatIncomes(incomes []models.Income) string {
	if len(incomes) == 0 {
		return "💰 No tienes ingresos registrados."
	}
	sorted := newestFirst(incomes, func(i models.Income) (int64, int64) { return i.Date.Unix(), i.ID })

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 <b>Ingresos</b> (%d)\n\n", len(incomes))
	total := decimal.Zero
	for i, in := range sorted {
		total = total.Add(in.Amount)
		if i < maxListed {
			sb.WriteString(formatIncomeLine(in))
			sb.WriteString("\n")
		}
	}
	if len(sorted) > maxListed {
		fmt.Fprintf(&sb, "… y %d más.\n", len(sorted)-maxListed)
	}
	fmt.Fprintf(&sb, "\nTotal: <b>%s</b>", money.FormatCLP(total))
	return sb.String()
}

func formatSummary(name string, s models.FinancialSummary) string {
	var sb strings.Builder
	if name != "" {
		fmt.Fprintf(&sb, "📊 <b>Resumen de %s</b>\n\n", escapeHTML(name))
	} else {
		sb.WriteString("📊 <b>Resumen</b>\n\n")
	}
	fmt.Fprintf(&sb, "Ingresos: %s\n", money.FormatCLP(s.TotalIncome))
	fmt.Fprintf(&sb, "Gastos: %s\n", money.FormatCLP(s.TotalExpenses))
	fmt.Fprintf(&sb, "Saldo: <b>%s</b>\n", money.FormatCLP(s.Balance))
	fmt.Fprintf(&sb, "Ahorro: %s\n", money.FormatPercent(s.SavingsPercent))

	if shares := report.CategoryShares(s); len(shares) > 0 {
		sb.WriteString("\n<b>Gastos por categoría</b>\n")
		for _, share := range shares {
			fmt.Fprintf(&sb, "• %s: %s (%s)\n",
				escapeHTML(share.Category), money.FormatCLP(share.Amount), money.FormatPercent(share.Percent))
		}
	}

	var alerts []string
	for _, row := range report.BudgetRows(s.BudgetItems) {
		if row.Status != models.BudgetOK {
			alerts = append(alerts, fmt.Sprintf("%s %s: %d%%", statusIcon(row.Status), escapeHTML(row.Item.Name), row.Percent))
		}
	}
	if len(alerts) > 0 {
		sb.WriteString("\n<b>Partidas en alerta</b>\n")
		sb.WriteString(strings.Join(alerts, "\n"))
		sb.WriteString("\n")
	}

	if len(s.Suggestions) > 0 {
		sb.WriteString("\n<b>Sugerencias</b>\n")
		for _, suggestion := range s.Suggestions {
			fmt.Fprintf(&sb, "💡 %s\n", escapeHTML(suggestion))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
