package playlist

import (
	"Playa/core/ordered"
	"Playa/model"
)

// snapshot is an immutable copy of the playlist contents.
type snapshot struct {
	tracks map[string]*model.Track
	order  *ordered.Collection[string]
}

// history keeps undo and redo stacks of snapshots.
type history struct {
	undo    []snapshot
	redo    []snapshot
	maxSize int
}

func newHistory(maxSize int) *history {
	if maxSize < 1 {
		maxSize = 1
	}
	return &history{maxSize: maxSize}
}

// mark records s as the state before a new mutation and clears redo.
func (h *history) mark(s snapshot) {
	h.pushUndo(s)
	h.redo = nil
}

func (h *history) pushUndo(s snapshot) {
	h.undo = append(h.undo, s)
	if len(h.undo) > h.maxSize {
		excess := len(h.undo) - h.maxSize
		h.undo = h.undo[excess:]
	}
}

// stepBack returns the state to restore and remembers present for redo.
func (h *history) stepBack(present snapshot) (snapshot, bool) {
	if len(h.undo) == 0 {
		return snapshot{}, false
	}
	s := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, present)
	return s, true
}

// stepForward returns the state to restore and remembers present for undo.
func (h *history) stepForward(present snapshot) (snapshot, bool) {
	if len(h.redo) == 0 {
		return snapshot{}, false
	}
	s := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.pushUndo(present)
	return s, true
}

func (h *history) canUndo() bool {
	return len(h.undo) > 0
}

func (h *history) canRedo() bool {
	return len(h.redo) > 0
}
