package inventory

// Mixed is reported for a pipeline or template running on more than one infrastructure type.
const Mixed = "Mixed"

// Classify collapses a label set: two or more distinct labels become {Mixed},
// anything smaller is returned as is. The input is never modified.
func Classify(labels Set) Set {
	if labels.Len() > 1 {
		return NewSet(Mixed)
	}
	return labels.Clone()
}
