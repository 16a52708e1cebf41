package query

import "iter"

// first returns the result of the first statement. Later statements are ignored.
func first(ress []Response) (Value, error) {
	if len(ress) == 0 {
		return nil, &QueryError{Statement: 0, Err: ErrNoStatements}
	}
	if err := ress[0].Err; err != nil {
		return nil, &QueryError{Statement: 0, Err: err}
	}
	return ress[0].Result, nil
}

// Objects decodes the first statement's result as an array of records. The returned
// sequence is lazy: an element that is not an Object yields a ShapeError and ends the
// iteration.
func Objects(ress []Response) (iter.Seq2[Object, error], error) {
	res, err := first(ress)
	if err != nil {
		return nil, err
	}

	arr, ok := res.(Array)
	if !ok {
		return nil, &ShapeError{Want: KindArray, Got: KindOf(res), Index: -1}
	}

	return func(yield func(Object, error) bool) {
		for i, v := range arr {
			obj, ok := v.(Object)
			if !ok {
				yield(nil, &ShapeError{Want: KindObject, Got: KindOf(v), Index: i})
				return
			}
			if !yield(obj, nil) {
				return
			}
		}
	}, nil
}

// FirstObject decodes the first record of the first statement's result.
func FirstObject(ress []Response) (Object, error) {
	res, err := first(ress)
	if err != nil {
		return nil, err
	}

	arr, ok := res.(Array)
	if !ok {
		return nil, &ShapeError{Want: KindArray, Got: KindOf(res), Index: -1}
	}
	if len(arr) == 0 {
		return nil, &ShapeError{Want: KindObject, Got: KindNone, Index: 0, Err: ErrNoRecords}
	}

	obj, ok := arr[0].(Object)
	if !ok {
		return nil, &ShapeError{Want: KindObject, Got: KindOf(arr[0]), Index: 0}
	}
	return obj, nil
}

// CollectObjects drains a sequence produced by Objects, stopping at the first error.
func CollectObjects(seq iter.Seq2[Object, error]) ([]Object, error) {
	var out []Object
	for obj, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
