package domain

// SubjectID is the authenticated subject of a request (session token "sub" or the dev header).
// We model it as an opaque identifier.
type SubjectID string

// MemberID is the integer identifier of a member record. It is unique and immutable once assigned.
type MemberID int64

// BoatID identifies a juremação boat.
type BoatID int64

// EventID identifies a saved external event (outing).
type EventID int64

// CelebrationID identifies a celebration/tribute event.
type CelebrationID int64

// HistoryID identifies a finalized ceremony record.
type HistoryID int64

// NextMemberID returns max(ids)+1, or 1 when ids is empty.
func NextMemberID(ids []MemberID) MemberID {
	var max MemberID
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// MemberIDPtr returns a pointer to a copy of id.
func MemberIDPtr(id MemberID) *MemberID { return &id }

// CloneMemberIDPtr copies the pointee so callers cannot alias internal state.
func CloneMemberIDPtr(p *MemberID) *MemberID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// EqualMemberIDPtr reports whether both are nil or both point to the same id.
func EqualMemberIDPtr(a, b *MemberID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
