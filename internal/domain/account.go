package domain

import "database/sql"

// AccountType is the remote account classification
type AccountType string

const (
	AccountTypeChecking       AccountType = "checking"
	AccountTypeSavings        AccountType = "savings"
	AccountTypeCash           AccountType = "cash"
	AccountTypeCreditCard     AccountType = "creditCard"
	AccountTypeLineOfCredit   AccountType = "lineOfCredit"
	AccountTypeOtherAsset     AccountType = "otherAsset"
	AccountTypeOtherLiability AccountType = "otherLiability"
	AccountTypeMortgage       AccountType = "mortgage"
	AccountTypeAutoLoan       AccountType = "autoLoan"
	AccountTypeStudentLoan    AccountType = "studentLoan"
	AccountTypePersonalLoan   AccountType = "personalLoan"
	AccountTypeMedicalDebt    AccountType = "medicalDebt"
	AccountTypeOtherDebt      AccountType = "otherDebt"
)

// Account is a budget account
type Account struct {
	ID                  string
	BudgetID            string
	Name                string
	Type                AccountType
	OnBudget            bool
	Closed              bool
	Note                sql.NullString
	Balance             Milliunits
	ClearedBalance      Milliunits
	UnclearedBalance    Milliunits
	TransferPayeeID     sql.NullString
	DirectImportLinked  bool
	DirectImportInError bool
	Deleted             bool
}

// Key returns the account ID
func (a Account) Key() string { return a.ID }
