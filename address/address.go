// Package address implements the RFC 5322 address-list tokenizer and
// grammar: groups, comments, and quoted display names reduce to a flat or
// nested list of Address values.
package address

// Address is either a plain mailbox ({Address, Name}) or a named group
// containing further Address values ({Name, Group}).
type Address struct {
	Name    string
	Address string
	Group   []Address
}

// IsGroup reports whether a is a named group rather than a mailbox.
func (a Address) IsGroup() bool { return a.Group != nil }

// Flatten walks a (possibly nested) address list and returns only the leaf
// mailbox addresses, expanding any groups in place.
func Flatten(list []Address) []Address {
	var out []Address
	var walk func([]Address)
	walk = func(addrs []Address) {
		for _, a := range addrs {
			if a.IsGroup() {
				walk(a.Group)
				continue
			}
			out = append(out, a)
		}
	}
	walk(list)
	return out
}
