package ports

import "github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"

// Interactor is the terminal side of the tool: plain messages for the user
// kept apart from the structured log stream.
type Interactor interface {
	Output(message string)
	Warning(message string)
	Error(message string, err error)
}

// Reporter renders a finished scan
type Reporter interface {
	Report(report *types.Report) error
}
