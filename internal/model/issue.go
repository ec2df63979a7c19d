package model

import "time"

// IssueState tracks how much of an issue has come back.
type IssueState string

const (
	IssueStateIssued   IssueState = "ISSUED"
	IssueStatePartial  IssueState = "PARTIAL"
	IssueStateReturned IssueState = "RETURNED"
)

// Issue is an outward movement of tools to a division.
type Issue struct {
	ID               int        `json:"id"`
	IssueNo          string     `json:"issue_no"`
	ItemID           int        `json:"item_id"`
	ItemCode         string     `json:"item_code,omitempty"`
	ItemName         string     `json:"item_name,omitempty"`
	DivisionID       int        `json:"division_id"`
	DivisionName     string     `json:"division_name,omitempty"`
	ContractorID     *int       `json:"contractor_id"`
	MachineID        *int       `json:"machine_id"`
	LocationID       *int       `json:"location_id"`
	Quantity         int        `json:"quantity"`
	ReturnedQuantity int        `json:"returned_quantity"`
	State            IssueState `json:"state"`
	IssuedBy         int        `json:"issued_by"`
	IssuedAt         time.Time  `json:"issued_at"`
	ExpectedReturnAt *time.Time `json:"expected_return_at"`
	Remarks          string     `json:"remarks"`
}

// Outstanding returns the quantity not yet returned.
func (i *Issue) Outstanding() int {
	return i.Quantity - i.ReturnedQuantity
}

// CreateIssueRequest is the payload for issuing tools.
type CreateIssueRequest struct {
	ItemID           int        `json:"item_id" binding:"required,gt=0"`
	DivisionID       int        `json:"division_id" binding:"required,gt=0"`
	ContractorID     *int       `json:"contractor_id"`
	MachineID        *int       `json:"machine_id"`
	LocationID       *int       `json:"location_id"`
	Quantity         int        `json:"quantity" binding:"required,gt=0"`
	ExpectedReturnAt *time.Time `json:"expected_return_at"`
	Remarks          string     `json:"remarks" binding:"max=1000"`
}

// ReturnRecord is an inward movement against an issue.
type ReturnRecord struct {
	ID         int       `json:"id"`
	IssueID    int       `json:"issue_id"`
	IssueNo    string    `json:"issue_no,omitempty"`
	Quantity   int       `json:"quantity"`
	StatusID   *int      `json:"status_id"`
	ReceivedBy int       `json:"received_by"`
	ReturnedAt time.Time `json:"returned_at"`
	Remarks    string    `json:"remarks"`
}

// CreateReturnRequest is the payload for receiving tools back.
type CreateReturnRequest struct {
	IssueID  int    `json:"issue_id" binding:"required,gt=0"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	StatusID *int   `json:"status_id"`
	Remarks  string `json:"remarks" binding:"max=1000"`
}

// IssueFilter narrows issue listings and reports.
type IssueFilter struct {
	State      IssueState
	DivisionID *int
	ItemID     *int
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
