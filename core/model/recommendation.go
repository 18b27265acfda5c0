package model

// Priority ranks a recommendation for the operator.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Category groups recommendations by the plant area they concern.
type Category string

const (
	CategorySavings   Category = "savings"
	CategoryGenerator Category = "generator"
	CategoryBoiler    Category = "boiler"
	CategoryTariff    Category = "tariff"
	CategoryGrid      Category = "grid"
	CategoryPressure  Category = "pressure"
	CategoryFreeSteam Category = "free_steam"
	CategoryCapacity  Category = "capacity"
	CategorySolver    Category = "solver"
)

// Recommendation is one operator-facing instruction.
type Recommendation struct {
	// Code is a stable identifier of the rule that produced it.
	Code        string   `json:"code"`
	Category    Category `json:"category"`
	Icon        string   `json:"icon"`
	Title       string   `json:"title"`
	Instruction string   `json:"instruction"`
	SafetyCheck string   `json:"safety_check,omitempty"`
	Impact      string   `json:"impact"`
	Priority    Priority `json:"priority"`
}
