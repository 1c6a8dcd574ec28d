package run

func SetStatus(status Status) UpdateSetter {
	return func(r *Run) error {
		if !status.IsValid() {
			return ErrInvalidStatus
		}
		r.Status = status
		return nil
	}
}

func SetIssueURL(url string) UpdateSetter {
	return func(r *Run) error {
		r.IssueURL = url
		return nil
	}
}

func SetCounts(completedItems, failedItems int) UpdateSetter {
	return func(r *Run) error {
		r.CompletedItems = completedItems
		r.FailedItems = failedItems
		return nil
	}
}
