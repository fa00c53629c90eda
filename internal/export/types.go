// Package export renders appeal letters as downloadable PDF files.
package export

import (
	"errors"
	"time"
)

// Letter is the appeal-letter content staged for export.
type Letter struct {
	DisputeID       string
	TicketType      string
	Location        string
	DateOfViolation string
	FullName        string
	Body            string
	CreatedAt       time.Time
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrLetterUnavailable indicates the dispute has no appeal letter yet.
	ErrLetterUnavailable = errors.New("export letter unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
