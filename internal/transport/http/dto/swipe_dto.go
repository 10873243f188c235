package dto

import "time"

type SwipeRequest struct {
	TargetID  int64  `json:"targetId"`
	Direction string `json:"direction"`
}

type QuotaResponse struct {
	SwipesRemaining     int       `json:"swipesRemaining"`
	SuperlikesRemaining int       `json:"superlikesRemaining"`
	Unlimited           bool      `json:"unlimited"`
	ResetsAt            time.Time `json:"resetsAt"`
}

type SwipeResponse struct {
	SwipeID   int64  `json:"swipeId"`
	Direction string `json:"direction"`
	IsMatch   bool   `json:"isMatch"`
	MatchID   *int64 `json:"matchId,omitempty"`
}
