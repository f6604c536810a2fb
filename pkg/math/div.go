package math

func DivRoundUp[T Integer](a, b T) T {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// RoundUp rounds `a` up to the next multiple of `b`.
func RoundUp[T Integer](a, b T) T {
	return DivRoundUp(a, b) * b
}
