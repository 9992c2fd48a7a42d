// Package query caches backend reads per (resource, access token) and
// invalidates them after mutations through an explicit dependency table.
package query

import "errors"

// Resource names a cached read.
type Resource string

// Cached resources.
const (
	ResourceProfile     Resource = "profile"
	ResourceBudgetItems Resource = "partidas"
	ResourceExpenses    Resource = "gastos"
	ResourceIncomes     Resource = "ingresos"
	ResourceSummary     Resource = "resumen"
	ResourceAuthConfig  Resource = "auth-config"
)

// Key identifies one cached read. Reads of different sessions never share
// entries because the token is part of the key.
type Key struct {
	Resource Resource
	Token    string
}

// ErrDisabled is returned for reads without an access token. No call is made.
var ErrDisabled = errors.New("query disabled: no access token")

// Dependents lists what a successful mutation of a resource makes stale.
// Expenses and incomes move the computed spent/available amounts of budget
// items; expenses carry the denormalized budget item name.
var Dependents = map[Resource][]Resource{
	ResourceExpenses:    {ResourceExpenses, ResourceSummary, ResourceBudgetItems},
	ResourceIncomes:     {ResourceIncomes, ResourceSummary, ResourceBudgetItems},
	ResourceBudgetItems: {ResourceBudgetItems, ResourceSummary, ResourceExpenses},
	ResourceProfile:     {ResourceProfile},
}

// DependentsOf returns the resources to invalidate after mutating r.
// Resources missing from the table only invalidate themselves.
func DependentsOf(r Resource) []Resource {
	if deps, ok := Dependents[r]; ok {
		return deps
	}
	return []Resource{r}
}
