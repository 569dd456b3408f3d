package debugger

// Value is one evaluated command argument
type Value struct {
	// Int is the evaluated result; zero when Err is set
	Int uint32
	// Err records why evaluation failed
	Err error
}

// Vector is an ordered argument list. Arguments are positional, and one
// failed element marks every element after it as failed too, so a single
// check of Err covers the whole command line.
type Vector []Value

// BuildVector evaluates each space-separated field of the argument text in
// order. Evaluation stops at the first failure; the remaining fields are
// carried as failed values without being evaluated. Empty text yields an
// empty, valid vector.
func BuildVector(text string) Vector {
	if text == "" {
		return nil
	}

	var (
		vector Vector
		failed error
	)
	for {
		field := text
		rest := ""
		for i := 0; i < len(text); i++ {
			if text[i] == ' ' {
				field = text[:i]
				rest = text[i+1:]
				break
			}
		}

		if failed != nil {
			vector = append(vector, Value{Err: failed})
		} else if value, err := Evaluate(field); err != nil {
			failed = err
			vector = append(vector, Value{Err: err})
		} else {
			vector = append(vector, Value{Int: value})
		}

		if field == text {
			return vector
		}
		text = rest
	}
}

// Err returns the first element failure, or nil for a fully valid vector
func (v Vector) Err() error {
	for _, value := range v {
		if value.Err != nil {
			return value.Err
		}
	}
	return nil
}

// Int returns the i-th argument, reporting whether it exists
func (v Vector) Int(i int) (uint32, bool) {
	if i < 0 || i >= len(v) || v[i].Err != nil {
		return 0, false
	}
	return v[i].Int, true
}
