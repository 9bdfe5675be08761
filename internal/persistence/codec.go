package persistence

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"linkbox/pkg/domain"
)

// SchemaVersion is the document version written by Encode.
const SchemaVersion = 1

// document is the persisted form: the store buckets plus a version tag.
// Documents without a version are legacy and migrated on decode.
type document struct {
	SchemaVersion int `json:"schemaVersion"`
	domain.Store
}

// legacyDocument is the unversioned layout. Processes carried firmName and
// explicit investment lists; investments pointed back at their process.
type legacyDocument struct {
	Ops         map[string]domain.OpsMember    `json:"ops"`
	Clients     map[string]domain.Client       `json:"clients"`
	Processes   map[int]legacyProcess          `json:"processes"`
	Investments map[int]domain.Investment      `json:"investments"`
	Convos      map[string]domain.Conversation `json:"convos"`
	Rounds      map[string]domain.Round        `json:"rounds"`
}

type legacyProcess struct {
	domain.FundProcess
	FirmName string `json:"firmName"`
}

var errUnsupportedVersion = errors.New("unsupported schema version")

// requiredBuckets must be present in every document, whatever its version.
var requiredBuckets = []string{"ops", "processes", "investments", "convos"}

// Encode serializes s as a current-version document.
func Encode(s domain.Store) ([]byte, error) {
	payload, err := json.Marshal(document{SchemaVersion: SchemaVersion, Store: s})
	if err != nil {
		return nil, fmt.Errorf("encode store: %w", err)
	}
	return payload, nil
}

// Decode parses a document of any known version and returns an indexed
// store. Malformed payloads, including objects missing a required bucket,
// yield an error wrapping ErrCorruptSnapshot.
// A version newer than SchemaVersion is reported as a plain error so the
// payload is never replaced.
func Decode(payload []byte) (domain.Store, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.Store{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if fields == nil {
		return domain.Store{}, fmt.Errorf("%w: payload is not an object", ErrCorruptSnapshot)
	}
	version := 0
	if raw, ok := fields["schemaVersion"]; ok {
		if err := json.Unmarshal(raw, &version); err != nil {
			return domain.Store{}, fmt.Errorf("%w: schema version: %w", ErrCorruptSnapshot, err)
		}
	}
	if version > SchemaVersion {
		return domain.Store{}, fmt.Errorf("%w %d", errUnsupportedVersion, version)
	}
	if version < 0 {
		return domain.Store{}, fmt.Errorf("%w: schema version %d", ErrCorruptSnapshot, version)
	}
	for _, bucket := range requiredBuckets {
		if _, ok := fields[bucket]; !ok {
			return domain.Store{}, fmt.Errorf("%w: missing %s", ErrCorruptSnapshot, bucket)
		}
	}
	if version == 0 {
		return decodeLegacy(payload)
	}
	var doc document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Store{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return doc.Store.Indexed(), nil
}

func decodeLegacy(payload []byte) (domain.Store, error) {
	var doc legacyDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Store{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	s := domain.Store{
		Ops:         doc.Ops,
		Clients:     doc.Clients,
		Investments: doc.Investments,
		Convos:      doc.Convos,
		Rounds:      doc.Rounds,
	}
	s.Processes = make(map[int]domain.FundProcess, len(doc.Processes))
	for id, lp := range doc.Processes {
		p := lp.FundProcess
		if p.FundName == "" {
			p.FundName = lp.FirmName
		}
		if p.ID == 0 {
			p.ID = id
		}
		s.Processes[id] = p
	}
	for id, c := range s.Convos {
		c.InvestmentRefs = domain.DedupeRefs(c.InvestmentRefs)
		s.Convos[id] = c
	}
	return s.Indexed(), nil
}
