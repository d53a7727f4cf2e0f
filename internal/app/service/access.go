package service

import (
	"fmt"

	"messagely/internal/common"
)

// canView allows only the two parties of a message.
func canView(caller, from, to string) error {
	if caller == "" {
		return common.ErrUnauthenticated
	}
	if caller != from && caller != to {
		return fmt.Errorf("cannot read this message: %w", common.ErrForbidden)
	}
	return nil
}

// canMarkRead allows only the recipient.
func canMarkRead(caller, to string) error {
	if caller == "" {
		return common.ErrUnauthenticated
	}
	if caller != to {
		return fmt.Errorf("cannot set this message to read: %w", common.ErrForbidden)
	}
	return nil
}
