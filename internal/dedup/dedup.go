package dedup

import "github.com/rickgao/bankrates/internal/model"

// ShouldPersist reports whether candidate differs from lastStored. A nil
// lastStored means the pair has never been seen.
func ShouldPersist(candidate model.Quote, lastStored *model.Quote) bool {
	if lastStored == nil {
		return true
	}
	return !candidate.Bid.Equal(lastStored.Bid) || !candidate.Ask.Equal(lastStored.Ask)
}
