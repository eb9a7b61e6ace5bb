package util

// Map applies the given function to each element in the slice and returns a new slice with the results
func Map[T any, R any](slice []T, f func(T) R) []R {
	result := make([]R, len(slice))
	for i, v := range slice {
		result[i] = f(v)
	}
	return result
}

func Filter[T any](slice []T, f func(T) bool) []T {
	var result []T
	for _, v := range slice {
		if keep := f(v); keep {
			result = append(result, v)
		}
	}
	return result
}

// FlatMap applies f to each element and concatenates the results.
func FlatMap[T any, R any](slice []T, f func(T) []R) []R {
	var result []R
	for _, v := range slice {
		result = append(result, f(v)...)
	}
	return result
}

// Reverse returns a reversed copy of the slice.
func Reverse[T any](slice []T) []T {
	result := make([]T, len(slice))
	for i, v := range slice {
		result[len(slice)-1-i] = v
	}
	return result
}
