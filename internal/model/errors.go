package model

import "github.com/rotisserie/eris"

var (
	// ErrNoBids is returned when a run has no bid files to compare against the tender.
	ErrNoBids = eris.New("no PDF bids found")
	// ErrUnreadablePDF marks a bid document that could not be opened as a PDF at all.
	ErrUnreadablePDF = eris.New("unreadable PDF")
	// ErrNoRequirements is returned by request validation when the tender text is missing.
	ErrNoRequirements = eris.New("tender requirements not provided")
	// ErrNoBidFiles is returned by request validation when nothing was uploaded.
	ErrNoBidFiles = eris.New("no bid files uploaded")
)
