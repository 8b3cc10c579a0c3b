package chat

// HasGrounding reports whether the tool batch produced material the answer
// can be grounded on. When false the pipeline must take the refusal path
// instead of forwarding tool results to the model.
func HasGrounding(results []ToolExecutionResult) bool {
	for _, result := range results {
		if result.HadReferenceContent {
			return true
		}
		if len(result.Resources) > 0 {
			return true
		}
	}
	return false
}

// AccumulatedResources collects every citation attached across the batch.
func AccumulatedResources(results []ToolExecutionResult) []ResourceInfo {
	var out []ResourceInfo
	for _, result := range results {
		out = append(out, result.Resources...)
	}
	return out
}
