package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"linkbox/internal/infra/persistence/memory"
	"linkbox/pkg/domain"
)

var storeOpts = cmp.Options{cmpopts.IgnoreUnexported(domain.Store{}), cmpopts.EquateEmpty()}

func fixtureStore() domain.Store {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := domain.NewStore()
	s.Ops["ops1"] = domain.OpsMember{ID: "ops1", FirstName: "Neha", LastName: "Patel", Email: "neha.patel@arch.com"}
	s.Clients["c1"] = domain.Client{ID: "c1", Name: "IFC Advisors", OpsOwnerID: "ops1"}
	s.Processes[1] = domain.FundProcess{ID: 1, FundName: "Landmark", ClientID: "c1", ConvoIDs: []string{"cv_1_a"}, CreatedAt: at, LastActivityAt: at}
	s.Investments[10] = domain.Investment{ID: 10, ClientID: "c1", InvestingEntity: "Holte Living Trust", FundName: "Landmark XVI", Status: domain.StatusInProgress, LastActivityAt: at}
	s.Investments[11] = domain.Investment{ID: 11, ClientID: "c1", InvestingEntity: "IFC Advisors LP", FundName: "Landmark XVI", LastActivityAt: at}
	s.Convos["cv_1_a"] = domain.Conversation{
		ID: "cv_1_a", ProcessID: 1, AliasEmail: "neha.patel-abcde@archinvestorservices.com", Subject: "Access",
		Participants: []domain.Role{domain.RoleAdmin}, InvestmentRefs: []int{10}, MessageCount: 1,
		LastActivityAt: at, Preview: "hello", State: domain.StatePendingFund,
		Messages: []domain.EmailMsg{{
			ID: "m1", Timestamp: at, From: domain.Address{Name: "Arch", Email: "neha.patel-abcde@archinvestorservices.com"},
			FromRole: domain.RoleOps, To: []string{"admin@landmark.com"}, Direction: domain.DirectionOut, Body: "hello",
		}},
	}
	s.Rounds["r1"] = domain.Round{ID: "r1", ProcessID: 1, Label: "Round 1", SentAt: at, ConvoIDs: []string{"cv_1_a"}}
	return s.Indexed()
}

func TestAdapterSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(memory.NewStore(), "", nil)
	if a.Key() != DefaultKey {
		t.Fatalf("expected default key, got %s", a.Key())
	}
	if _, err := a.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	want := fixtureStore()
	if err := a.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got, storeOpts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.Investments[11].Status != domain.StatusUnassigned {
		t.Fatalf("expected null status to decode as unassigned")
	}
	if refs := got.ReferencingConversations(10); len(refs) != 1 || refs[0] != "cv_1_a" {
		t.Fatalf("expected decoded store to be indexed, got %v", refs)
	}
}

func TestLoadReportsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	a := NewAdapter(backend, "k", nil)
	payloads := []string{
		`{not json`,
		`null`,
		`[]`,
		`42`,
		`{}`,
		`{"foo":1}`,
		`{"schemaVersion":1,"processes":"oops"}`,
		`{"schemaVersion":1,"ops":{},"processes":{},"investments":{}}`,
		`{"schemaVersion":"one","ops":{},"processes":{},"investments":{},"convos":{}}`,
		`{"schemaVersion":-1}`,
	}
	for _, payload := range payloads {
		if err := backend.Put(ctx, "k", []byte(payload)); err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := a.Load(ctx); !errors.Is(err, ErrCorruptSnapshot) {
			t.Fatalf("payload %s: expected ErrCorruptSnapshot, got %v", payload, err)
		}
	}
}

func TestLoadRefusesNewerSchema(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	if err := backend.Put(ctx, DefaultKey, []byte(`{"schemaVersion":99}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, err := NewAdapter(backend, "", nil).Load(ctx)
	if err == nil || errors.Is(err, ErrCorruptSnapshot) || errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected a plain error for a newer schema, got %v", err)
	}
}

func TestDecodeMigratesLegacyDocument(t *testing.T) {
	legacy := `{
		"ops": {"ops1": {"id": "ops1", "firstName": "Neha", "lastName": "Patel", "email": "neha.patel@arch.com"}},
		"clients": {"c1": {"id": "c1", "name": "IFC Advisors", "opsOwnerId": "ops1"}},
		"processes": {"1": {"id": 1, "firmName": "Landmark Equity Partners", "clientId": "c1", "convoIds": ["cv_1_m1"], "investmentIds": [282700]}},
		"investments": {"282700": {"id": 282700, "clientId": "c1", "investingEntity": "Holte Living Trust", "fundName": "Landmark XVI", "status": "linked", "firmProcessId": 1}},
		"convos": {"cv_1_m1": {"id": "cv_1_m1", "processId": 1, "investmentRefs": [282700, 282700], "state": "CLOSED", "messageCount": 1,
			"messages": [{"id": "m1", "from": "Landmark Admin <admin@landmark.com>", "fromRole": "ADMIN", "direction": "IN", "body": "done"}]}},
		"rounds": {"r1_1": {"id": "r1_1", "processId": 1, "label": "Round 1", "convoIds": ["cv_1_m1"], "investmentIds": [282700]}}
	}`
	s, err := Decode([]byte(legacy))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := s.Processes[1].FundName; got != "Landmark Equity Partners" {
		t.Fatalf("expected firmName migrated to fundName, got %q", got)
	}
	c := s.Convos["cv_1_m1"]
	if len(c.InvestmentRefs) != 1 {
		t.Fatalf("expected duplicate refs dropped, got %v", c.InvestmentRefs)
	}
	want := domain.Address{Name: "Landmark Admin", Email: "admin@landmark.com"}
	if c.Messages[0].From != want {
		t.Fatalf("expected structured sender, got %+v", c.Messages[0].From)
	}
	if !s.IsReferenced(282700) {
		t.Fatalf("expected migrated store to be indexed")
	}

	// re-encoding writes the current version
	payload, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode current: %v", err)
	}
	if diff := cmp.Diff(s, again, storeOpts); diff != "" {
		t.Fatalf("migrated store changed on re-encode (-want +got):\n%s", diff)
	}
}

type failingBackend struct {
	*memory.Store
	getErr error
}

func (f failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.getErr
}

func TestResetSeedsAndLoadSurfacesBackendErrors(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(memory.NewStore(), "", fixtureStore)
	seeded, err := a.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	loaded, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("load after reset: %v", err)
	}
	if diff := cmp.Diff(seeded, loaded, storeOpts); diff != "" {
		t.Fatalf("reset store not persisted (-want +got):\n%s", diff)
	}

	boom := errors.New("connection refused")
	broken := NewAdapter(failingBackend{Store: memory.NewStore(), getErr: boom}, "", nil)
	_, err = broken.Load(ctx)
	if !errors.Is(err, boom) || errors.Is(err, ErrNoSnapshot) || errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("expected backend error surfaced, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
