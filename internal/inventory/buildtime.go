package inventory

import "time"

// ExecutionNode is one node of an execution's layout, timestamps in epoch milliseconds.
type ExecutionNode struct {
	Type    string
	StartTs int64
	EndTs   int64
}

// Execution is one recorded run of a pipeline.
type Execution struct {
	ID    string
	Nodes []ExecutionNode
}

// BuildTime sums the duration of the execution's CI nodes.
func (e Execution) BuildTime() time.Duration {
	var ms int64
	for _, n := range e.Nodes {
		if n.Type != StageTypeCI || n.StartTs == 0 || n.EndTs < n.StartTs {
			continue
		}
		ms += n.EndTs - n.StartTs
	}
	return time.Duration(ms) * time.Millisecond
}

// BuildTimes returns the average and maximum CI build time over executions.
// Executions without CI time are ignored; none at all yields zeros.
func BuildTimes(executions []Execution) (avg, peak time.Duration) {
	var total time.Duration
	n := 0
	for _, e := range executions {
		bt := e.BuildTime()
		if bt <= 0 {
			continue
		}
		total += bt
		n++
		if bt > peak {
			peak = bt
		}
	}
	if n == 0 {
		return 0, 0
	}
	return total / time.Duration(n), peak
}
