package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/sync/errgroup"

	"gitlab.com/yelinaung/finova-bot/internal/forms"
	"gitlab.com/yelinaung/finova-bot/internal/logger"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/money"
	"gitlab.com/yelinaung/finova-bot/internal/report"
)

const (
	usageBudgetItem = `Uso:
• <code>/partida nueva "Nombre" fijo|variable &lt;monto&gt;</code>
• <code>/partida editar &lt;id&gt; "Nombre" fijo|variable &lt;monto&gt;</code>
• <code>/partida borrar &lt;id&gt;</code>`

	usageExpense = `Uso:
• <code>/gasto nuevo &lt;monto&gt; &lt;fecha|hoy&gt; fijo|variable [partida=ID] [categoria=..] [nota=..]</code>
• <code>/gasto editar &lt;id&gt; &lt;monto&gt; &lt;fecha|hoy&gt; fijo|variable [partida=ID] [categoria=..] [nota=..]</code>
• <code>/gasto borrar &lt;id&gt;</code>`

	usageIncome = `Uso:
• <code>/ingreso nuevo &lt;monto&gt; &lt;fecha|hoy&gt; fijo|eventual [nota=..]</code>
• <code>/ingreso editar &lt;id&gt; &lt;monto&gt; &lt;fecha|hoy&gt; fijo|eventual [nota=..]</code>
• <code>/ingreso borrar &lt;id&gt;</code>`
)

var expenseOptions = []string{"partida", "categoria", "nota"}

func (b *Bot) handleBudgetItems(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	items, err := c.svc.BudgetItems(ctx)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	b.reply(ctx, tg, c.id, formatBudgetRows(report.BudgetRows(items)))
}

func budgetItemForm(args []string) forms.BudgetItemForm {
	return forms.BudgetItemForm{
		Name:      args[0],
		Kind:      models.BudgetKind(strings.ToLower(args[1])),
		Allocated: forms.Amount(args[2]),
	}
}

func (b *Bot) handleBudgetItem(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, args string) {
	a := parseArgs(args)

	switch strings.ToLower(a.arg(0)) {
	case "nueva", "nuevo":
		if len(a.positional) != 4 {
			b.reply(ctx, tg, c.id, usageBudgetItem)
			return
		}
		item, err := c.svc.CreateBudgetItem(ctx, budgetItemForm(a.positional[1:]))
		if err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, fmt.Sprintf("✅ Partida creada: <b>%s</b> #%d · %s",
			escapeHTML(item.Name), item.ID, money.FormatCLP(item.Allocated)))

	case "editar":
		id, ok := parseID(a.arg(1))
		if !ok || len(a.positional) != 5 {
			b.reply(ctx, tg, c.id, usageBudgetItem)
			return
		}
		item, err := c.svc.UpdateBudgetItem(ctx, id, budgetItemForm(a.positional[2:]))
		if err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, fmt.Sprintf("✅ Partida actualizada: <b>%s</b> #%d · %s",
			escapeHTML(item.Name), item.ID, money.FormatCLP(item.Allocated)))

	case "borrar", "eliminar":
		id, ok := parseID(a.arg(1))
		if !ok {
			b.reply(ctx, tg, c.id, usageBudgetItem)
			return
		}
		if err := c.svc.DeleteBudgetItem(ctx, id); err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, fmt.Sprintf("🗑️ Partida #%d eliminada.", id))

	default:
		b.reply(ctx, tg, c.id, usageBudgetItem)
	}
}

func (b *Bot) handleExpenses(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	expenses, err := c.svc.Expenses(ctx)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	b.reply(ctx, tg, c.id, formatExpenses(expenses))
}

// expenseForm reads "<monto> <fecha> <tipo>" plus options.
func (b *Bot) expenseForm(a commandArgs, pos []string) (forms.ExpenseForm, error) {
	form := forms.ExpenseForm{
		Amount: forms.Amount(pos[0]),
		Date:   b.normalizeDate(pos[1]),
		Kind:   models.ExpenseKind(strings.ToLower(pos[2])),
	}
	if raw, ok := a.option("partida"); ok && raw != "" {
		id, valid := parseID(raw)
		if !valid {
			return form, &forms.ValidationError{Fields: map[string]string{"partida": "Selecciona una partida válida"}}
		}
		form.BudgetItemID = &id
	}
	form.Category, _ = a.option("categoria")
	form.Note, _ = a.option("nota")
	return form, nil
}

func (b *Bot) handleExpense(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, args string) {
	a := parseArgs(args, expenseOptions...)

	switch strings.ToLower(a.arg(0)) {
	case "nuevo", "nueva":
		if len(a.positional) != 4 {
			b.reply(ctx, tg, c.id, usageExpense)
			return
		}
		form, err := b.expenseForm(a, a.positional[1:])
		if err == nil {
			var expense models.Expense
			expense, err = c.svc.CreateExpense(ctx, form)
			if err == nil {
				b.reply(ctx, tg, c.id, "✅ Gasto registrado:\n"+formatExpenseLine(b.withBudgetItemName(ctx, c, expense)))
				return
			}
		}
		b.replyError(ctx, tg, c.id, err)

	case "editar":
		id, ok := parseID(a.arg(1))
		if !ok || len(a.positional) != 5 {
			b.reply(ctx, tg, c.id, usageExpense)
			return
		}
		form, err := b.expenseForm(a, a.positional[2:])
		if err == nil {
			var expense models.Expense
			expense, err = c.svc.UpdateExpense(ctx, id, form)
			if err == nil {
				b.reply(ctx, tg, c.id, "✅ Gasto actualizado:\n"+formatExpenseLine(b.withBudgetItemName(ctx, c, expense)))
				return
			}
		}
		b.replyError(ctx, tg, c.id, err)

	case "borrar", "eliminar":
		id, ok := parseID(a.arg(1))
		if !ok {
			b.reply(ctx, tg, c.id, usageExpense)
			return
		}
		if err := c.svc.DeleteExpense(ctx, id); err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, fmt.Sprintf("🗑️ Gasto #%d eliminado.", id))

	default:
		b.reply(ctx, tg, c.id, usageExpense)
	}
}

// withBudgetItemName fills the denormalized budget item name, which write
// responses may omit, from the cached budget items.
func (b *Bot) withBudgetItemName(ctx context.Context, c *chat, e models.Expense) models.Expense {
	if e.BudgetItemID == nil || (e.BudgetItemName != nil && *e.BudgetItemName != "") {
		return e
	}
	items, err := c.svc.BudgetItems(ctx)
	if err != nil {
		return e
	}
	for _, item := range items {
		if item.ID == *e.BudgetItemID {
			name := item.Name
			e.BudgetItemName = &name
			break
		}
	}
	return e
}

func (b *Bot) handleIncomes(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	incomes, err := c.svc.Incomes(ctx)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	b.reply(ctx, tg, c.id, formatIncomes(incomes))
}

func (b *Bot) incomeForm(a commandArgs, pos []string) forms.IncomeForm {
	note, _ := a.option("nota")
	return forms.IncomeForm{
		Amount: forms.Amount(pos[0]),
		Date:   b.normalizeDate(pos[1]),
		Kind:   models.IncomeKind(strings.ToLower(pos[2])),
		Note:   note,
	}
}

func (b *Bot) handleIncome(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, args string) {
	a := parseArgs(args, "nota")

	switch strings.ToLower(a.arg(0)) {
	case "nuevo", "nueva":
		if len(a.positional) != 4 {
			b.reply(ctx, tg, c.id, usageIncome)
			return
		}
		income, err := c.svc.CreateIncome(ctx, b.incomeForm(a, a.positional[1:]))
		if err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, "✅ Ingreso registrado:\n"+formatIncomeLine(income))

	case "editar":
		id, ok := parseID(a.arg(1))
		if !ok || len(a.positional) != 5 {
			b.reply(ctx, tg, c.id, usageIncome)
			return
		}
		income, err := c.svc.UpdateIncome(ctx, id, b.incomeForm(a, a.positional[2:]))
		if err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, "✅ Ingreso actualizado:\n"+formatIncomeLine(income))

	case "borrar", "eliminar":
		id, ok := parseID(a.arg(1))
		if !ok {
			b.reply(ctx, tg, c.id, usageIncome)
			return
		}
		if err := c.svc.DeleteIncome(ctx, id); err != nil {
			b.replyError(ctx, tg, c.id, err)
			return
		}
		b.reply(ctx, tg, c.id, fmt.Sprintf("🗑️ Ingreso #%d eliminado.", id))

	default:
		b.reply(ctx, tg, c.id, usageIncome)
	}
}

// handleSummary loads the summary and the profile concurrently. Only the
// summary is required; without a profile the title falls back to the
// session user.
func (b *Bot) handleSummary(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	var (
		g       errgroup.Group
		summary models.FinancialSummary
		name    string
	)

	g.Go(func() error {
		var err error
		summary, err = c.svc.Summary(ctx)
		return err
	})
	g.Go(func() error {
		profile, err := c.svc.Profile(ctx)
		if err != nil {
			logger.Log.Debug().Err(err).Str("chat", logger.HashChatID(c.id)).Msg("Profile unavailable for summary")
			return nil
		}
		name = displayName(profile)
		return nil
	})
	if err := g.Wait(); err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}

	if name == "" {
		if user := c.store.Snapshot().User; user != nil {
			name = displayName(*user)
		}
	}
	b.reply(ctx, tg, c.id, formatSummary(name, summary))
}

func (b *Bot) handleChart(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	summary, err := c.svc.Summary(ctx)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}

	chart, err := report.CategoryChart(summary)
	if err != nil {
		if errors.Is(err, report.ErrNoExpenses) {
			b.reply(ctx, tg, c.id, "📊 Aún no hay gastos para graficar.")
			return
		}
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		b.reply(ctx, tg, c.id, "❌ No se pudo generar el gráfico. Intenta nuevamente.")
		return
	}

	b.sendDocument(ctx, tg, c.id,
		report.ExportFilename("grafico", "png", b.now()),
		chart,
		fmt.Sprintf("📊 <b>Gastos por categoría</b>\nTotal: %s", money.FormatCLP(summary.TotalExpenses)))
}

func (b *Bot) handleExport(ctx context.Context, tg TelegramAPI, c *chat, _ *tgmodels.Message, _ string) {
	expenses, err := c.svc.Expenses(ctx)
	if err != nil {
		b.replyError(ctx, tg, c.id, err)
		return
	}
	if len(expenses) == 0 {
		b.reply(ctx, tg, c.id, "📄 No tienes gastos para exportar.")
		return
	}

	data, err := report.ExpensesCSV(expenses)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate CSV")
		b.reply(ctx, tg, c.id, "❌ No se pudo generar el archivo. Intenta nuevamente.")
		return
	}

	b.sendDocument(ctx, tg, c.id,
		report.ExportFilename("gastos", "csv", b.now()),
		data,
		fmt.Sprintf("📄 %d gastos exportados", len(expenses)))
}

func (b *Bot) sendDocument(ctx context.Context, tg TelegramAPI, chatID int64, filename string, data []byte, caption string) {
	_, err := tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &tgmodels.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:   caption,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat", logger.HashChatID(chatID)).Msg("Failed to send document")
		b.reply(ctx, tg, chatID, "❌ No se pudo enviar el archivo. Intenta nuevamente.")
	}
}
