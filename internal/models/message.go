package models

import "time"

type Status string

const (
	StatusSent     Status = "sent"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSent, StatusCanceled, StatusFailed:
		return true
	}
	return false
}

type Message struct {
	ID         string     `json:"id"`
	FromIP     string     `json:"fromIP"`
	ToIP       string     `json:"toIP"`
	Subject    *string    `json:"subject"`
	Body       string     `json:"body"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	CanceledAt *time.Time `json:"canceledAt"`
}

// DeletedMessage is the only part of a message that survives deletion;
// it is what message.deleted carries.
type DeletedMessage struct {
	ID     string `json:"id"`
	FromIP string `json:"fromIP"`
	ToIP   string `json:"toIP"`
}

// ConnectionSession is live while DisconnectedAt is nil. LastSeenAt is
// refreshed by the owning process on every sweep.
type ConnectionSession struct {
	ID             string
	IP             string
	ConnectedAt    time.Time
	LastSeenAt     time.Time
	DisconnectedAt *time.Time
}

type Page struct {
	Data       []Message `json:"data"`
	NextCursor *string   `json:"nextCursor"`
}

type NearbyUser struct {
	IP            string  `json:"ip"`
	LastActive    string  `json:"lastActive"`
	SentCount     int     `json:"sentCount"`
	ReceivedCount int     `json:"receivedCount"`
	RecentSubject *string `json:"recentSubject"`
	RecentPreview *string `json:"recentPreview"`
}

type NearbyUsers struct {
	Me      string       `json:"me"`
	Network *string      `json:"network"`
	Users   []NearbyUser `json:"users"`
}
