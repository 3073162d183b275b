package voting

// MaxTokensFor caps how many tokens a member may spend on one ballot, by
// trust tier. Higher standing buys a louder (but still square-rooted) voice.
func MaxTokensFor(trustScore int) int {
	switch {
	case trustScore >= 80:
		return 100
	case trustScore >= 60:
		return 50
	case trustScore >= 40:
		return 25
	default:
		return 10
	}
}

// ResolveTie breaks an exact for/against power tie: the side of the
// earliest cast ballot that spent tokens wins, rewarding early conviction.
// Returns the approval outcome; an empty or power-less set resolves to
// rejection.
func ResolveTie(votes []Vote) bool {
	for _, v := range votes {
		if v.Tokens > 0 {
			return v.Approve
		}
	}
	return false
}
