package main

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

var errAborted = errors.New("aborted by user")

// confirm asks a yes/no question on the terminal. Anything but yes aborts.
func confirm(label string) error {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return errAborted
		}
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	return nil
}
