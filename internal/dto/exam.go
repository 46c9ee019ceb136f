package dto

// GenerateExamsRequest plans the exam window.
type GenerateExamsRequest struct {
	StartDate string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	NumDays   int    `json:"numDays" validate:"omitempty,min=1,max=30"`
	Reset     bool   `json:"reset"`
}

// GenerateExamsResponse returns the planner counts.
type GenerateExamsResponse struct {
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	From    string `json:"from"`
	To      string `json:"to"`
}
