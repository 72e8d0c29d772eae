package utils

import "fmt"

type Pair[First any, Second any] struct {
	First  First
	Second Second
}

func (p *Pair[First, Second]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

func (p *Pair[First, Second]) Decompose() (First, Second) {
	return p.First, p.Second
}

func MakePair[First any, Second any](first First, second Second) Pair[First, Second] {
	return Pair[First, Second]{
		First:  first,
		Second: second,
	}
}

// Zips two sequences positionally, up to the length of the shorter one
func Zip[First any, Second any](first []First, second []Second) []Pair[First, Second] {
	n := min(len(first), len(second))
	pairs := make([]Pair[First, Second], n)

	for i := range n {
		pairs[i] = MakePair(first[i], second[i])
	}

	return pairs
}
