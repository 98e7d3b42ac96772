package main

func (m *model) undo() {
	if !m.engine.CanUndo() {
		m.successMessage = "nothing to undo"
		return
	}
	if !m.engine.Undo() {
		m.errorMessage = "finish the current gesture first"
	}
}

func (m *model) redo() {
	if !m.engine.CanRedo() {
		m.successMessage = "nothing to redo"
		return
	}
	if !m.engine.Redo() {
		m.errorMessage = "finish the current gesture first"
	}
}

// clearImage removes every annotation of the current image as one edit.
func (m *model) clearImage() {
	m.engine.SelectAll()
	if m.engine.Delete() {
		m.successMessage = "annotations cleared (u to undo)"
	}
}
