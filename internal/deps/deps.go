// Package deps resolves the external binaries packflow shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external binary and what the pipeline uses it for.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status is the outcome of resolving one requirement on this host. Detail
// holds the resolved path when the binary is available and the failure
// reason when it is not.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// MediaTools returns the binaries the media transitions need: ffmpeg for
// defragmentation and thumbnail extraction, ffprobe for stream probing.
func MediaTools(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "MP4 defragmentation and thumbnail extraction",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "media stream probing",
		},
	}
}

// Check resolves the requirement's command against PATH.
func (r Requirement) Check() Status {
	status := Status{Requirement: r}
	command := strings.TrimSpace(r.Command)
	if command == "" {
		status.Detail = "no command configured"
		return status
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		status.Detail = fmt.Sprintf("%q not found on PATH", command)
		return status
	}
	status.Available = true
	status.Detail = resolved
	return status
}

// CheckBinaries resolves every requirement in order.
func CheckBinaries(requirements []Requirement) []Status {
	statuses := make([]Status, 0, len(requirements))
	for _, requirement := range requirements {
		statuses = append(statuses, requirement.Check())
	}
	return statuses
}
