package pipeline

// Outcome classifies how an adapter handled one item.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Item is the per-item result returned by adapters. Key is a stable
// identifier (Drive file ID, source path, or artifact path). Reason explains
// skipped and failed outcomes.
type Item[T any] struct {
	Key     string
	Outcome Outcome
	Value   T
	Reason  string
}

// Ok reports a successfully handled item.
func Ok[T any](key string, value T) Item[T] {
	return Item[T]{Key: key, Outcome: OutcomeOK, Value: value}
}

// Skip reports an item the adapter declined on purpose. Value may carry a
// result that later phases can still use, such as a file already on disk.
func Skip[T any](key string, value T, reason string) Item[T] {
	return Item[T]{Key: key, Outcome: OutcomeSkipped, Value: value, Reason: reason}
}

// Fail reports an item that could not be handled.
func Fail[T any](key string, reason string) Item[T] {
	return Item[T]{Key: key, Outcome: OutcomeFailed, Reason: reason}
}

// FailErr is Fail with the reason taken from err.
func FailErr[T any](key string, err error) Item[T] {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return Fail[T](key, reason)
}

// tally folds per-item outcomes into the counters of result.
func tally[T any](result *PhaseResult, items []Item[T]) {
	for _, item := range items {
		result.Attempted++
		switch item.Outcome {
		case OutcomeOK:
			result.Succeeded++
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Key: item.Key, Reason: item.Reason})
		}
	}
}

// forward returns the values of OK items and of skipped items for which
// usable reports true, preserving order.
func forward[T any](items []Item[T], usable func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		switch item.Outcome {
		case OutcomeOK:
			out = append(out, item.Value)
		case OutcomeSkipped:
			if usable(item.Value) {
				out = append(out, item.Value)
			}
		}
	}
	return out
}
