// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by linkbox.
package domain

import "time"

// EntityType identifies the type of record stored in the Store.
type EntityType string

// Supported entity type identifiers used in Change records and violations.
const (
	// EntityOpsMember identifies an internal operator.
	EntityOpsMember EntityType = "ops_member"
	// EntityClient identifies a client record.
	EntityClient EntityType = "client"
	// EntityProcess identifies a fund linking process.
	EntityProcess EntityType = "process"
	// EntityInvestment identifies an investment record.
	EntityInvestment EntityType = "investment"
	// EntityConversation identifies an email conversation.
	EntityConversation EntityType = "conversation"
	// EntityRound identifies a batch mailer round.
	EntityRound EntityType = "round"
)

// InvestmentStatus is the link status of an investment. The zero value
// means the investment is not referenced by any conversation.
type InvestmentStatus string

// Canonical investment statuses.
const (
	StatusUnassigned InvestmentStatus = ""
	StatusLinked     InvestmentStatus = "linked"
	StatusInProgress InvestmentStatus = "in_progress"
	StatusArchived   InvestmentStatus = "archived"
)

// Valid reports whether s is one of the assignable (non-null) statuses.
func (s InvestmentStatus) Valid() bool {
	switch s {
	case StatusLinked, StatusInProgress, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether s counts as done for conversation closing.
func (s InvestmentStatus) Terminal() bool {
	return s == StatusLinked || s == StatusArchived
}

// ConvoState is the derived workflow state of a conversation.
type ConvoState string

// Conversation states.
const (
	StateNoResponse  ConvoState = "NO_RESPONSE"
	StatePendingFund ConvoState = "PENDING_FUND"
	StatePendingArch ConvoState = "PENDING_ARCH"
	StateClosed      ConvoState = "CLOSED"
)

// Valid reports whether c is a known conversation state.
func (c ConvoState) Valid() bool {
	switch c {
	case StateNoResponse, StatePendingFund, StatePendingArch, StateClosed:
		return true
	}
	return false
}

// Label returns the badge text shown for the state.
func (c ConvoState) Label() string {
	switch c {
	case StateNoResponse:
		return "no response"
	case StatePendingFund:
		return "pending fund reply"
	case StatePendingArch:
		return "arch response needed"
	case StateClosed:
		return "closed"
	}
	return string(c)
}

// Role is the party a message sender acts for.
type Role string

// Sender roles.
const (
	RoleOps    Role = "OPS"
	RoleAdmin  Role = "ADMIN"
	RoleFund   Role = "FUND"
	RoleClient Role = "CLIENT"
)

// Direction is the direction of a message relative to the operations firm.
type Direction string

// Message directions.
const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// OpsMember is an internal operator. Seeded reference data.
type OpsMember struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// FullName joins first and last name.
func (o OpsMember) FullName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// Client is a customer of the operations firm, owned by one ops member.
type Client struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OpsOwnerID string `json:"opsOwnerId"`
}

// FundProcess is one fund linking engagement for a client. The investments
// of a process are derived from its conversations' references.
type FundProcess struct {
	ID             int       `json:"id"`
	FundName       string    `json:"fundName"`
	ClientID       string    `json:"clientId"`
	ConvoIDs       []string  `json:"convoIds"`
	RoundIDs       []string  `json:"roundIds"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// HasConversation reports whether id is listed in the process.
func (p FundProcess) HasConversation(id string) bool {
	for _, cid := range p.ConvoIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// Investment is a capital commitment that needs linking in the fund's system.
type Investment struct {
	ID              int              `json:"id"`
	ClientID        string           `json:"clientId"`
	InvestingEntity string           `json:"investingEntity"`
	FundName        string           `json:"fundName"`
	Status          InvestmentStatus `json:"status"`
	LastActivityAt  time.Time        `json:"lastActivityAt"`
}

// Conversation is an email thread with an external fund administrator.
type Conversation struct {
	ID             string     `json:"id"`
	ProcessID      int        `json:"processId"`
	AliasEmail     string     `json:"aliasEmail"`
	Subject        string     `json:"subject"`
	Participants   []Role     `json:"participants"`
	InvestmentRefs []int      `json:"investmentRefs"`
	MessageCount   int        `json:"messageCount"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	Preview        string     `json:"preview"`
	State          ConvoState `json:"state"`
	Messages       []EmailMsg `json:"messages"`
}

// References reports whether the conversation links the investment id.
func (c Conversation) References(id int) bool {
	for _, ref := range c.InvestmentRefs {
		if ref == id {
			return true
		}
	}
	return false
}

// EmailMsg is an append-only element of a conversation.
type EmailMsg struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	From      Address   `json:"from"`
	FromRole  Role      `json:"fromRole"`
	To        []string  `json:"to"`
	CC        []string  `json:"cc,omitempty"`
	BCC       []string  `json:"bcc,omitempty"`
	Direction Direction `json:"direction"`
	Body      string    `json:"body"`
}

// Round is a batch mailer record grouping conversations sent together.
type Round struct {
	ID        string    `json:"id"`
	ProcessID int       `json:"processId"`
	Label     string    `json:"label"`
	SentAt    time.Time `json:"sentAt"`
	ConvoIDs  []string  `json:"convoIds"`
}
