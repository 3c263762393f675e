package encoding

import (
	"fmt"

	"target-encoder/internal/dataset"
)

// DefaultSuffix is appended to the categorical column name to name the
// encoded column.
const DefaultSuffix = "_encoded"

// EncodeTable fits an encoder on the categoryCol and targetCol columns of t
// and appends the training encoding as the column categoryCol+suffix. The
// source columns are left untouched; an existing column with the derived
// name is replaced. With the holdout strategy the appended values are the
// out-of-fold values of each row. An empty suffix means DefaultSuffix.
func EncodeTable(t *dataset.Table, categoryCol, targetCol, suffix string, opts Options) (*dataset.Table, *Encoder[string], error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	categories, err := t.Column(categoryCol)
	if err != nil {
		return nil, nil, &ValidationError{Field: categoryCol, Reason: err.Error()}
	}
	targets, err := t.Floats(targetCol)
	if err != nil {
		return nil, nil, &DataError{Reason: err.Error()}
	}

	enc, err := New[string](opts)
	if err != nil {
		return nil, nil, err
	}
	values, err := enc.FitTransform(categories, targets)
	if err != nil {
		return nil, nil, err
	}

	name := categoryCol + suffix
	if name == targetCol {
		return nil, nil, &ValidationError{Field: name, Reason: "encoded column would overwrite the target column"}
	}
	if err := t.AppendFloats(name, values); err != nil {
		return nil, nil, fmt.Errorf("append encoded column: %w", err)
	}
	return t, enc, nil
}
