package regflow

import "unicode"

// PasswordScore rates a password 0–5, one point per satisfied criterion:
// length of at least 8, a lowercase letter, an uppercase letter, a digit,
// and a symbol. Adding a criterion never lowers the score.
func PasswordScore(pw string) int {
	score := 0
	if len(pw) >= 8 {
		score++
	}
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			score++
		}
	}
	return score
}

// PasswordClass maps a score onto the fixed threshold table:
// 0–2 weak, 3 fair, 4 good, 5 strong.
func PasswordClass(score int) string {
	switch {
	case score <= 2:
		return "weak"
	case score == 3:
		return "fair"
	case score == 4:
		return "good"
	default:
		return "strong"
	}
}
