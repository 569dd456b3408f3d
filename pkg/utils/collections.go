package utils

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Generates a sequence constructed by applying a function to all elements of a given input sequence
func Map[T any, U any](input []T, mapFunction func(T) U) []U {
	output := make([]U, len(input))

	for i := range input {
		output[i] = mapFunction(input[i])
	}

	return output
}

// Returns an array with all the keys of a map
func Keys[Key comparable, Value any](input map[Key]Value) []Key {
	keys := make([]Key, 0, len(input))

	for key := range input {
		keys = append(keys, key)
	}

	return keys
}

// Returns an array with all the values of a map
func Values[Key comparable, Value any](input map[Key]Value) []Value {
	values := make([]Value, 0, len(input))

	for _, value := range input {
		values = append(values, value)
	}

	return values
}

// Returns the keys of a map in ascending order
func SortedKeys[Key constraints.Ordered, Value any](input map[Key]Value) []Key {
	keys := Keys(input)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Returns the smallest item of a non-empty sequence
func Min[T constraints.Ordered](input []T) T {
	result := input[0]

	for _, item := range input[1:] {
		if item < result {
			result = item
		}
	}

	return result
}

// Returns the biggest item of a non-empty sequence
func Max[T constraints.Ordered](input []T) T {
	result := input[0]

	for _, item := range input[1:] {
		if item > result {
			result = item
		}
	}

	return result
}
