package commandgen

// SetStatus returns a setter that updates the draft status.
func SetStatus(status DraftStatus) UpdateSetter {
	return func(d *Draft) error {
		if !status.IsValid() {
			return ErrInvalidDraftStatus
		}
		d.Status = status
		return nil
	}
}

// SetCommands returns a setter that records the generated commands and
// marks the draft completed.
func SetCommands(commands []string) UpdateSetter {
	return func(d *Draft) error {
		if len(commands) == 0 {
			return ErrNoCommands
		}
		d.Commands = commands
		d.Status = StatusCompleted
		d.ErrorMessage = nil
		return nil
	}
}

// SetErrorMessage returns a setter that records a drafting failure.
func SetErrorMessage(message string) UpdateSetter {
	return func(d *Draft) error {
		d.ErrorMessage = &message
		d.Status = StatusFailed
		return nil
	}
}
