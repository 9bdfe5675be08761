package core

import (
	"time"

	"linkbox/pkg/domain"
)

// Seed builds the demo dataset: one ops member, two clients with one
// process each, referenced and unassigned investments, and conversations
// whose states agree with their investments.
func (e *Engine) Seed() domain.Store {
	now := e.now()
	daysAgo := func(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

	s := domain.NewStore()
	ops := domain.OpsMember{ID: "ops1", FirstName: "Neha", LastName: "Patel", Email: "neha.patel@arch.com"}
	s.Ops[ops.ID] = ops
	s.Clients["c1"] = domain.Client{ID: "c1", Name: "IFC Advisors", OpsOwnerID: ops.ID}
	s.Clients["c2"] = domain.Client{ID: "c2", Name: "Foothill Capital", OpsOwnerID: ops.ID}

	statuses := []domain.InvestmentStatus{domain.StatusLinked, domain.StatusInProgress, domain.StatusArchived}
	for i := 0; i < 10; i++ {
		inv := domain.Investment{
			ID:              282700 + i,
			ClientID:        "c1",
			InvestingEntity: pick(i%2 == 0, "Holte Living Trust", "IFC Advisors LP"),
			FundName:        pick(i < 5, "Landmark XVI", "Landmark Co-Invest A"),
			Status:          statuses[i%len(statuses)],
			LastActivityAt:  daysAgo(15 - i),
		}
		s.Investments[inv.ID] = inv
	}
	for i := 0; i < 10; i++ {
		status := statuses[(i+1)%len(statuses)]
		if i < 5 && status == domain.StatusInProgress {
			// the first round of this process is complete
			status = domain.StatusLinked
		}
		inv := domain.Investment{
			ID:              283000 + i,
			ClientID:        "c2",
			InvestingEntity: pick(i%2 == 0, "Foothill Holdings LLC", "Cypress Family Trust"),
			FundName:        pick(i < 6, "GSO Capital Solutions III", "GSO Special Situations"),
			Status:          status,
			LastActivityAt:  daysAgo(10 - i),
		}
		s.Investments[inv.ID] = inv
	}
	unassignedEntities := []string{"Meridian Capital Partners", "Summit Investment Group", "Crosswind Holdings"}
	for i := 0; i < 6; i++ {
		inv := domain.Investment{
			ID:              290000 + i,
			ClientID:        "c1",
			InvestingEntity: unassignedEntities[i%3],
			FundName:        pick(i < 3, "Opportunity Fund IV", "Growth Capital Fund II"),
			LastActivityAt:  daysAgo(20 - i),
		}
		s.Investments[inv.ID] = inv
	}
	for i := 0; i < 4; i++ {
		inv := domain.Investment{
			ID:              291000 + i,
			ClientID:        "c2",
			InvestingEntity: pick(i%2 == 0, "Pinnacle Asset Management", "Ridgeline Partners"),
			FundName:        pick(i < 2, "Strategic Ventures Fund", "Capital Opportunities III"),
			LastActivityAt:  daysAgo(18 - i),
		}
		s.Investments[inv.ID] = inv
	}

	alias1 := AliasEmail(ops, e.ids)
	alias2 := AliasEmail(ops, e.ids)
	alias3 := AliasEmail(ops, e.ids)
	alias4 := AliasEmail(ops, e.ids)
	landmark := domain.Address{Name: "Landmark Admin", Email: "admin@landmark.com"}
	gso := domain.Address{Name: "GSO Admin", Email: "admin@gso.com"}
	gsoOps := domain.Address{Name: "GSO Operations", Email: "ops@gso.com"}

	convos := []domain.Conversation{
		{
			ID: "cv_1_m1", ProcessID: 1, AliasEmail: alias1, Subject: "Linking Mailer — Round 1",
			InvestmentRefs: []int{282700, 282701, 282702, 282703, 282704, 282705},
			LastActivityAt: daysAgo(13), State: domain.StatePendingFund,
			Preview: "Automated mailer sent to fund admin for 6 investments.",
			Messages: []domain.EmailMsg{
				outbound("m1", daysAgo(14), domain.Address{Name: "Test Living Trust via Arch", Email: alias1}, landmark.Email,
					"Important: Investor Request for Portal Access\n\nPlease add test-landmark@archdocuments.com to your records for the investments listed. Once completed, confirm here."),
				inbound("m2", daysAgo(13), landmark, alias1,
					"Thanks — received. We will review internally and circle back once access has been provisioned."),
			},
		},
		{
			ID: "cv_1_m2", ProcessID: 1, AliasEmail: alias3, Subject: "Landmark Co-Invest A — Portal Access",
			InvestmentRefs: []int{282706, 282707, 282708, 282709},
			LastActivityAt: daysAgo(3), State: domain.StatePendingFund,
			Messages: []domain.EmailMsg{
				outbound("m1", daysAgo(3), domain.Address{Name: opsDisplayName, Email: alias3}, landmark.Email,
					"Following up on the co-invest positions listed below. Please confirm once access is granted."),
			},
		},
		{
			ID: "cv_2_m1", ProcessID: 2, AliasEmail: alias2, Subject: "Linking Mailer — Round 1",
			InvestmentRefs: []int{283000, 283001, 283002, 283003, 283004},
			LastActivityAt: daysAgo(11), State: domain.StateClosed,
			Preview: "Automated mailer sent for 5 investments.",
			Messages: []domain.EmailMsg{
				outbound("m1", daysAgo(12), domain.Address{Name: opsDisplayName, Email: alias2}, gso.Email,
					"Requesting portal access for five investments (Round 1)."),
				inbound("m2", daysAgo(11), gso, alias2,
					"Completed. You should see invites for all five positions."),
			},
		},
		{
			ID: "cv_2_m2", ProcessID: 2, AliasEmail: alias4, Subject: "GSO Special Situations — Access Follow-up",
			InvestmentRefs: []int{283005, 283006, 283007, 283008, 283009},
			LastActivityAt: daysAgo(2), State: domain.StatePendingArch,
			Messages: []domain.EmailMsg{
				outbound("m1", daysAgo(6), domain.Address{Name: opsDisplayName, Email: alias4}, gso.Email,
					"Requesting portal access for the remaining positions."),
				inbound("m2", daysAgo(2), gsoOps, alias4,
					"Two of these need a signed subscription confirmation before we can grant access. Can you send them over?"),
			},
		},
	}
	for _, c := range convos {
		c.Participants = []domain.Role{domain.RoleAdmin}
		c.MessageCount = len(c.Messages)
		if c.Preview == "" {
			c.Preview = Preview(c.Messages[len(c.Messages)-1].Body)
		}
		s.Convos[c.ID] = c
	}

	s.Processes[1] = domain.FundProcess{
		ID: 1, FundName: "Landmark Equity Partners", ClientID: "c1",
		ConvoIDs: []string{"cv_1_m1", "cv_1_m2"}, RoundIDs: []string{"r1_1"},
		CreatedAt: daysAgo(30), LastActivityAt: daysAgo(1),
	}
	s.Processes[2] = domain.FundProcess{
		ID: 2, FundName: "Blackstone GSO", ClientID: "c2",
		ConvoIDs: []string{"cv_2_m1", "cv_2_m2"}, RoundIDs: []string{"r1_2"},
		CreatedAt: daysAgo(20), LastActivityAt: daysAgo(2),
	}
	s.Rounds["r1_1"] = domain.Round{ID: "r1_1", ProcessID: 1, Label: "Round 1", SentAt: daysAgo(14), ConvoIDs: []string{"cv_1_m1"}}
	s.Rounds["r1_2"] = domain.Round{ID: "r1_2", ProcessID: 2, Label: "Round 1", SentAt: daysAgo(12), ConvoIDs: []string{"cv_2_m1"}}

	return s.Reindex()
}

func outbound(id string, ts time.Time, from domain.Address, to, body string) domain.EmailMsg {
	return domain.EmailMsg{
		ID: id, Timestamp: ts, From: from, FromRole: domain.RoleOps,
		To: []string{to}, Direction: domain.DirectionOut, Body: body,
	}
}

func inbound(id string, ts time.Time, from domain.Address, to, body string) domain.EmailMsg {
	return domain.EmailMsg{
		ID: id, Timestamp: ts, From: from, FromRole: domain.RoleAdmin,
		To: []string{to}, Direction: domain.DirectionIn, Body: body,
	}
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
