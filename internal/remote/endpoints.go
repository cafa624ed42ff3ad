package remote

import (
	"net/url"
	"strconv"
)

// BudgetsEndpoint lists every budget
const BudgetsEndpoint = "/budgets"

func budgetPath(budgetID string) string {
	return BudgetsEndpoint + "/" + url.PathEscape(budgetID)
}

// AccountsEndpoint lists the accounts of one budget
func AccountsEndpoint(budgetID string) string {
	return budgetPath(budgetID) + "/accounts"
}

// CategoriesEndpoint lists category groups with their categories
func CategoriesEndpoint(budgetID string) string {
	return budgetPath(budgetID) + "/categories"
}

// TransactionsEndpoint lists transactions. A positive since asks only for
// changes after that server knowledge.
func TransactionsEndpoint(budgetID string, since int64) string {
	endpoint := budgetPath(budgetID) + "/transactions"
	if since > 0 {
		endpoint += "?last_knowledge_of_server=" + strconv.FormatInt(since, 10)
	}
	return endpoint
}
