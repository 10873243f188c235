package rules

// CanonicalPair orders two user ids so an unordered pair maps to exactly one
// (user_a_id, user_b_id) row. The matches table has a uniqueness constraint on
// this order, which is what makes concurrent mutual-like races collapse to a
// single match instead of two.
func CanonicalPair(userID, targetID int64) (int64, int64) {
	if userID > targetID {
		return targetID, userID
	}
	return userID, targetID
}
