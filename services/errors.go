package services

import "errors"

// Sentinel errors surfaced by the verification pipeline. Validation and
// ownership errors are returned to the caller as rejected operations; gateway
// failures are recovered locally by falling back to manual review.
var (
	ErrTaskUnavailable       = errors.New("task does not exist or is not accepting submissions")
	ErrDuplicateSubmission   = errors.New("a submission already exists for this task and user")
	ErrNotEligible           = errors.New("submission is not eligible for resubmission by this user")
	ErrNotFound              = errors.New("record not found")
	ErrAlreadyAssigned       = errors.New("queue item is already assigned to another reviewer")
	ErrNotAssignedToReviewer = errors.New("queue item is not assigned to this reviewer")
)
