package enums

type SwipeDirection string

const (
	SwipeDirectionLike      SwipeDirection = "like"
	SwipeDirectionPass      SwipeDirection = "pass"
	SwipeDirectionSuperlike SwipeDirection = "superlike"
)

func (d SwipeDirection) Valid() bool {
	switch d {
	case SwipeDirectionLike, SwipeDirectionPass, SwipeDirectionSuperlike:
		return true
	default:
		return false
	}
}

// Positive reports whether the direction counts toward a mutual match.
func (d SwipeDirection) Positive() bool {
	return d == SwipeDirectionLike || d == SwipeDirectionSuperlike
}
