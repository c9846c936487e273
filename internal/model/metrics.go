package model

// MRRBreakdown 按计费周期归类的月度收入
type MRRBreakdown struct {
	Monthly   float64 `json:"monthly"`
	Annual    float64 `json:"annual"`
	Quarterly float64 `json:"quarterly"`
	Other     float64 `json:"other"`
}

// Sum 四类之和
func (b MRRBreakdown) Sum() float64 {
	return b.Monthly + b.Annual + b.Quarterly + b.Other
}

type MRR struct {
	Total     float64      `json:"total"`
	Breakdown MRRBreakdown `json:"breakdown"`
}

type SubscriberMetrics struct {
	Active    int `json:"active"`
	Cancelled int `json:"cancelled"`
	PastDue   int `json:"past_due"`
	Trialing  int `json:"trialing"`
	Total     int `json:"total"`
}

type TrialMetrics struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

type CLVMetrics struct {
	Average        float64 `json:"average"`
	Median         float64 `json:"median"`
	Total          float64 `json:"total"`
	TotalCustomers int     `json:"total_customers"`
}

type CashFlowMetrics struct {
	Gross        float64 `json:"gross"`
	Net          float64 `json:"net"`
	Refunds      float64 `json:"refunds"`
	Recurring    float64 `json:"recurring"`
	NonRecurring float64 `json:"non_recurring"`
}

type PaymentMetrics struct {
	Successful   int     `json:"successful"`
	Failed       int     `json:"failed"`
	Pending      int     `json:"pending"`
	Total        int     `json:"total"`
	SuccessRate  float64 `json:"success_rate"`
	FailedAmount float64 `json:"failed_amount"`
}

type RefundMetrics struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
}

type RevenueMetrics struct {
	Total          float64 `json:"total"`
	Recurring      float64 `json:"recurring"`
	NonRecurring   float64 `json:"non_recurring"`
	ProcessingFees float64 `json:"processing_fees"`
	Net            float64 `json:"net"`
	NetMargin      float64 `json:"net_margin"`
	NewCustomers   int     `json:"new_customers"`
}

type ChurnMetrics struct {
	CustomerChurnRate   float64 `json:"customer_churn_rate"`
	RevenueChurnRate    float64 `json:"revenue_churn_rate"`
	NetRevenueRetention float64 `json:"net_revenue_retention"`
	ChurnedCustomers    int     `json:"churned_customers"`
	StartingCustomers   int     `json:"starting_customers"`
	StartingMRR         float64 `json:"starting_mrr"`
	EndingMRR           float64 `json:"ending_mrr"`
}
