package generator

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// GenerateUnifiedDiff creates a unified diff string between two text contents.
func GenerateUnifiedDiff(filePath, originalContent, newContent string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(originalContent),
		B:        difflib.SplitLines(newContent),
		FromFile: fmt.Sprintf("%s (existing)", filePath),
		ToFile:   fmt.Sprintf("%s (regenerated)", filePath),
		Context:  3,
		Eol:      "\n",
	}
	return difflib.GetUnifiedDiffString(diff)
}
