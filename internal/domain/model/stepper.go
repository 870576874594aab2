package model

import "strings"

// StepDescriptor is one entry of the progress bar; Path is the url token.
type StepDescriptor struct {
	Label string
	Path  string
}

type StepView struct {
	StepDescriptor
	Completed bool
	Active    bool
}

// Stepper derives progress from the current url path alone: the first step
// whose token appears among the path segments is active, those before it are
// completed. With no match nothing is marked.
func Stepper(steps []StepDescriptor, currentPath string) []StepView {
	segments := strings.Split(strings.Trim(currentPath, "/"), "/")
	active := -1
	for i, s := range steps {
		if containsSegment(segments, s.Path) {
			active = i
			break
		}
	}
	out := make([]StepView, len(steps))
	for i, s := range steps {
		out[i] = StepView{
			StepDescriptor: s,
			Completed:      active >= 0 && i < active,
			Active:         i == active,
		}
	}
	return out
}

func containsSegment(segments []string, token string) bool {
	if token == "" {
		return false
	}
	for _, seg := range segments {
		if seg == token {
			return true
		}
	}
	return false
}
