package dashboard

// Overview is the headline summary of the user's finances.
type Overview struct {
	TotalIncome          float64 `json:"totalIncome"`
	TotalExpenses        float64 `json:"totalExpenses"`
	AvailableMoney       float64 `json:"availableMoney"`
	SavingsRate          float64 `json:"savingsRate"`
	SubscriptionExpenses float64 `json:"subscriptionExpenses"`
	BillExpenses         float64 `json:"billExpenses"`
	ActiveSubscriptions  int     `json:"activeSubscriptions"`
	ActiveBills          int     `json:"activeBills"`
}

type DataPoint struct {
	Date     string  `json:"date"` // yyyy-mm-dd
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

// TimeSeries holds one data point per month, oldest first.
type TimeSeries struct {
	DataPoints []DataPoint `json:"dataPoints"`
}

type CategoryExpense struct {
	CategoryName string  `json:"categoryName"`
	Amount       float64 `json:"amount"`
	Percentage   float64 `json:"percentage"`
	ItemCount    int     `json:"itemCount"`
}

type CategoryBreakdown struct {
	Expenses      []CategoryExpense `json:"expenses"`
	TotalExpenses float64           `json:"totalExpenses"`
}

type currencyBody struct {
	Currency string `json:"currency"`
}
