package model

type Problem struct {
	ProblemID        string   `json:"problemId"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	InputTestCases   []string `json:"inputTestCases"`
	ExpectedOutputs  []string `json:"expectedOutputs"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	MemoryLimitMB    int      `json:"memoryLimitMB"`
}

// TestCaseCount returns the number of (input, expected output) pairs.
// InputTestCases and ExpectedOutputs are index-aligned and equal length
// by construction; the repository rejects problems where they differ.
func (p *Problem) TestCaseCount() int {
	return len(p.InputTestCases)
}
