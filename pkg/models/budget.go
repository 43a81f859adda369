package models

// BudgetPeriod defines the time window for a budget policy.
type BudgetPeriod string

const (
	BudgetHourly BudgetPeriod = "hourly"
	BudgetDaily  BudgetPeriod = "daily"
)

// BudgetPolicy caps the number of upstream review fetches per period.
type BudgetPolicy struct {
	MaxFetches int64        `json:"max_fetches" yaml:"max_fetches"`
	Period     BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current usage against a policy.
type BudgetStatus struct {
	Policy    BudgetPolicy `json:"policy"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
}
