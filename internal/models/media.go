package models

import "time"

// Media is one stored object. OwnerID is fixed at upload; AllowedUserIDs is
// the set of non-owner users granted read access. The owner is never stored
// in AllowedUserIDs, but owner access does not depend on it either.
type Media struct {
	ID             string
	OwnerID        string
	AllowedUserIDs []string
	FileName       string
	MimeType       string
	SizeBytes      int64
	Bucket         string
	ObjectKey      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CanView reports whether userID may read this object: owner access and
// allow-list access are independent grants, either suffices.
func (m Media) CanView(userID string) bool {
	if m.OwnerID == userID {
		return true
	}
	for _, id := range m.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
