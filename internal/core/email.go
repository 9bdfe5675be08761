package core

import (
	"slices"
	"strings"

	"linkbox/pkg/domain"
)

// AutocompleteOption is one recipient suggestion.
type AutocompleteOption struct {
	Email       string
	Label       string
	DisplayName string
}

// IncomingAddresses returns the distinct addresses of inbound non-ops
// senders, sorted.
func IncomingAddresses(c domain.Conversation) []string {
	seen := make(map[string]struct{})
	for _, m := range c.Messages {
		if m.Direction != domain.DirectionIn || m.FromRole == domain.RoleOps || m.From.Email == "" {
			continue
		}
		seen[strings.ToLower(m.From.Email)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

// DisplayNameFor returns the name of the first inbound message sent from
// address, or the address itself.
func DisplayNameFor(c domain.Conversation, address string) string {
	for _, m := range c.Messages {
		if m.Direction != domain.DirectionIn || m.FromRole == domain.RoleOps {
			continue
		}
		if strings.EqualFold(m.From.Email, address) {
			if m.From.Name != "" {
				return m.From.Name
			}
			return address
		}
	}
	return address
}

// AutocompleteOptions builds recipient suggestions from inbound senders.
func AutocompleteOptions(c domain.Conversation) []AutocompleteOption {
	addrs := IncomingAddresses(c)
	out := make([]AutocompleteOption, 0, len(addrs))
	for _, addr := range addrs {
		name := DisplayNameFor(c, addr)
		label := addr
		if name != addr {
			label = domain.Address{Name: name, Email: addr}.String()
		}
		out = append(out, AutocompleteOption{Email: addr, Label: label, DisplayName: name})
	}
	return out
}

// NormalizeRecipients drops cc entries already in to, and bcc entries
// already in to or cc. Comparison ignores case; first occurrence wins.
func NormalizeRecipients(to, cc, bcc []string) (outCC, outBCC []string) {
	taken := make(map[string]struct{}, len(to)+len(cc))
	for _, addr := range to {
		taken[strings.ToLower(addr)] = struct{}{}
	}
	keep := func(list []string) []string {
		var out []string
		for _, addr := range list {
			key := strings.ToLower(addr)
			if _, ok := taken[key]; ok {
				continue
			}
			taken[key] = struct{}{}
			out = append(out, addr)
		}
		return out
	}
	outCC = keep(cc)
	outBCC = keep(bcc)
	return outCC, outBCC
}
