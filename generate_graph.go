//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/finova-bot/internal/models"
	"gitlab.com/yelinaung/finova-bot/internal/report"
)

func main() {
	summary := models.FinancialSummary{
		TotalExpenses:      decimal.NewFromInt(735000),
		ExpensesByCategory: map[string]decimal.Decimal{
			"Arriendo":        decimal.NewFromInt(450000),
			"Supermercado":    decimal.NewFromInt(150500),
			"Transporte":      decimal.NewFromInt(60000),
			"Entretención":    decimal.NewFromInt(25000),
			"Cuentas básicas": decimal.NewFromInt(49500),
		},
	}

	chartData, err := report.CategoryChart(summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Chart saved to graph.png")
}
