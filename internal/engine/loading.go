package engine

// LoadingState is the coarse lifecycle of a slice's main fetch.
type LoadingState string

const (
	Idle      LoadingState = "idle"
	Pending   LoadingState = "pending"
	Succeeded LoadingState = "succeeded"
	Failed    LoadingState = "failed"
)
