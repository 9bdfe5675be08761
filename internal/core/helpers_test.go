package core

import (
	"fmt"
	"sync"
	"time"

	"linkbox/pkg/domain"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// seqIDs hands out predictable tokens and message ids.
type seqIDs struct {
	mu  sync.Mutex
	seq int
}

func (s *seqIDs) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *seqIDs) Token(n int) string { return fmt.Sprintf("%0*d", n, s.next()) }

func (s *seqIDs) MessageID() string { return fmt.Sprintf("m_%d", s.next()) }

type stubClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestEngine(opts ...EngineOption) *Engine {
	base := []EngineOption{EngineClock(&stubClock{t: testNow}), EngineIDs(&seqIDs{})}
	return NewEngine(append(base, opts...)...)
}

// smallStore is a two-client fixture: process 1 (c1) holds cv_a and cv_b,
// process 2 (c1) holds cv_c, process 3 (c2) holds cv_d. Investments 100
// and 101 are unassigned.
func smallStore() domain.Store {
	earlier := testNow.Add(-48 * time.Hour)
	s := domain.NewStore()
	s.Ops["ops1"] = domain.OpsMember{ID: "ops1", FirstName: "Neha", LastName: "Patel", Email: "neha.patel@arch.com"}
	s.Clients["c1"] = domain.Client{ID: "c1", Name: "IFC Advisors", OpsOwnerID: "ops1"}
	s.Clients["c2"] = domain.Client{ID: "c2", Name: "Foothill Capital", OpsOwnerID: "ops1"}
	put := func(id int, client string, status domain.InvestmentStatus) {
		s.Investments[id] = domain.Investment{
			ID: id, ClientID: client, InvestingEntity: fmt.Sprintf("Entity %d", id),
			FundName: "Fund", Status: status, LastActivityAt: earlier,
		}
	}
	put(100, "c1", domain.StatusUnassigned)
	put(101, "c1", domain.StatusUnassigned)
	put(200, "c1", domain.StatusInProgress)
	put(201, "c1", domain.StatusLinked)
	put(202, "c1", domain.StatusArchived)
	put(300, "c2", domain.StatusInProgress)

	convo := func(id string, pid int, state domain.ConvoState, refs ...int) domain.Conversation {
		return domain.Conversation{
			ID: id, ProcessID: pid, AliasEmail: "neha.patel-00000@archinvestorservices.com", Subject: "Access",
			Participants: []domain.Role{domain.RoleAdmin}, InvestmentRefs: refs, MessageCount: 1,
			LastActivityAt: earlier, Preview: "hello", State: state,
			Messages: []domain.EmailMsg{{
				ID: "m0", Timestamp: earlier,
				From:     domain.Address{Name: "Arch", Email: "neha.patel-00000@archinvestorservices.com"},
				FromRole: domain.RoleOps, To: []string{"admin@fund.com"}, Direction: domain.DirectionOut, Body: "hello",
			}},
		}
	}
	s.Convos["cv_a"] = convo("cv_a", 1, domain.StatePendingFund, 200, 201)
	s.Convos["cv_b"] = convo("cv_b", 1, domain.StateClosed, 202)
	s.Convos["cv_c"] = convo("cv_c", 2, domain.StatePendingFund, 200)
	s.Convos["cv_d"] = convo("cv_d", 3, domain.StatePendingFund, 300)

	s.Processes[1] = domain.FundProcess{ID: 1, FundName: "Landmark", ClientID: "c1", ConvoIDs: []string{"cv_a", "cv_b"}, CreatedAt: earlier, LastActivityAt: earlier}
	s.Processes[2] = domain.FundProcess{ID: 2, FundName: "Atlas", ClientID: "c1", ConvoIDs: []string{"cv_c"}, CreatedAt: earlier, LastActivityAt: earlier}
	s.Processes[3] = domain.FundProcess{ID: 3, FundName: "GSO", ClientID: "c2", ConvoIDs: []string{"cv_d"}, CreatedAt: earlier, LastActivityAt: earlier}
	return s.Reindex()
}

// assignmentBreaches lists investments whose status disagrees with whether
// any conversation references them.
func assignmentBreaches(s domain.Store) []int {
	var bad []int
	for _, id := range s.InvestmentIDs() {
		inv := s.Investments[id]
		if s.IsReferenced(id) == (inv.Status == domain.StatusUnassigned) {
			bad = append(bad, id)
		}
	}
	return bad
}
