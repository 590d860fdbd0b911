package jobs

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress is what a job's stdout says about how far it got.
type Progress struct {
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	Success     int    `json:"success"`
	Failed      int    `json:"failed"`
	LastMessage string `json:"last_message"`
}

var (
	foundRe      = regexp.MustCompile(`Found\s+(\d+)\s+listings`)
	processingRe = regexp.MustCompile(`Processing\s*\[?\s*(\d+)\s*/`)
)

// ParseProgress scans script output for "Found N listings",
// "Processing [X/Y]" and success or error markers. It returns nil for empty
// output.
func ParseProgress(stdout string) *Progress {
	if strings.TrimSpace(stdout) == "" {
		return nil
	}

	p := &Progress{}
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := foundRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				p.Total = n
			}
		}
		if m := processingRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				p.Processed = n
			}
		}
		if strings.Contains(line, "✅") || strings.Contains(line, "Successfully") {
			p.Success++
		}
		if strings.Contains(line, "❌") || strings.Contains(line, "Error") || strings.Contains(line, "Failed") {
			p.Failed++
		}

		p.LastMessage = line
	}
	return p
}
