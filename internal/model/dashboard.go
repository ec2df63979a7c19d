package model

// DashboardSummary consolidates the stat cards shown on the dashboard.
type DashboardSummary struct {
	TotalItems     int     `json:"total_items"`
	AvailableStock int     `json:"available_stock"`
	OpenIssues     int     `json:"open_issues"`
	OverdueIssues  int     `json:"overdue_issues"`
	IssuedToday    int     `json:"issued_today"`
	ReturnedToday  int     `json:"returned_today"`
	RecentIssues   []Issue `json:"recent_issues"`
}

// MovementEvent is published whenever tools move in or out.
type MovementEvent struct {
	Kind     string `json:"kind"`
	IssueID  int    `json:"issue_id"`
	IssueNo  string `json:"issue_no"`
	ItemID   int    `json:"item_id"`
	Quantity int    `json:"quantity"`
	UserID   int    `json:"user_id"`
}

const (
	MovementOutward = "outward"
	MovementInward  = "inward"
	MovementOverdue = "overdue"
)
