package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is the immutable, write-once record of one authorization
// decision.
type Event struct {
	ID             uuid.UUID
	PrincipalID    int64
	Resource       string
	Action         string
	Granted        bool
	Reason         string
	OrganizationID int64
	TeamID         int64
	OccurredAt     time.Time
}

// TimelineFilters narrows a timeline query.
type TimelineFilters struct {
	From        time.Time
	To          time.Time
	PrincipalID int64
	Resource    string
	Action      string
	Page        int
	PageSize    int
}

// PagingInfo carries pagination metadata for timeline pages.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result wraps one timeline page with its paging info.
type Result struct {
	Events []Event
	Paging PagingInfo
}
