package utils

// Returns a copy of a sequence in reverse order
func Reversed[T any](input []T) []T {
	output := make([]T, len(input))

	for i := range input {
		output[len(input)-i-1] = input[i]
	}

	return output
}
