package core

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"linkbox/pkg/domain"
)

const (
	idAlphabet  = "0123456789abcdefghjkmnpqrstvwxyz"
	aliasDomain = "archinvestorservices.com"
)

// IDSource generates the random parts of entity identifiers.
type IDSource interface {
	// Token returns n characters from the lowercase base32 id alphabet.
	Token(n int) string
	// MessageID returns a unique message identifier.
	MessageID() string
}

// RandomIDs returns an IDSource backed by crypto/rand and UUIDs.
func RandomIDs() IDSource { return randomIDs{} }

type randomIDs struct{}

func (randomIDs) Token(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random: %v", err))
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}

func (randomIDs) MessageID() string { return "m_" + uuid.NewString() }

// AliasEmail builds the per-conversation reply address of an ops member.
func AliasEmail(member domain.OpsMember, ids IDSource) string {
	local := strings.ToLower(strings.Join(strings.Fields(member.FirstName+"."+member.LastName), ""))
	return fmt.Sprintf("%s-%s@%s", local, ids.Token(5), aliasDomain)
}

func (e *Engine) conversationID(s domain.Store, processID int) string {
	for {
		id := fmt.Sprintf("cv_%d_%s", processID, e.ids.Token(8))
		if _, exists := s.Convos[id]; !exists {
			return id
		}
	}
}

func nextProcessID(s domain.Store) int {
	next := 1
	for id := range s.Processes {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// nextClientID returns c{n} for the smallest n above every numeric suffix
// in use.
func nextClientID(s domain.Store) string {
	next := 1
	for id := range s.Clients {
		var n int
		if _, err := fmt.Sscanf(id, "c%d", &n); err == nil && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("c%d", next)
}
