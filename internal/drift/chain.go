package drift

import "fmt"

// ChainLink is one applied migration in history order.
type ChainLink struct {
	ID   string
	Name string
}

// ChainRoot returns the merkle root over an ordered run of applied
// migrations. Each leaf binds its position, so reordering the same
// migrations changes the root.
func ChainRoot(links []ChainLink) (string, error) {
	hashes := make([]string, len(links))
	for i, l := range links {
		hashes[i] = hashString(fmt.Sprintf("%d|%s|%s", i, l.ID, l.Name))
	}
	return merkleRoot(hashes, "empty_chain")
}
