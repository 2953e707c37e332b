package tui

type View int

const (
	ViewSearch View = iota
	ViewDetail
	ViewSaved
	ViewEditNotes
	ViewDeleteConfirm
)

func (v View) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewDetail:
		return "detail"
	case ViewSaved:
		return "saved"
	case ViewEditNotes:
		return "notes"
	case ViewDeleteConfirm:
		return "delete"
	default:
		return "unknown"
	}
}

// notesTarget tells the notes view what a submit does.
type notesTarget int

const (
	// notesForSave collects notes for the detail being saved.
	notesForSave notesTarget = iota
	// notesForSaved edits the notes of an article already in the store.
	notesForSaved
)
