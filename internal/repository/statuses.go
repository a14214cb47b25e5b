package repository

import (
	"errors"
	"fmt"
	"os"
)

// LoadStatuses reads the ordered list of status labels. Unlike the users and
// tasks files the statuses file must exist.
func LoadStatuses(path string) ([]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("statuses file %s: %w", path, err)
	}

	var statuses []string
	if err := readJSON(path, &statuses); err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("statuses file %s: no labels", path)
	}
	return statuses, nil
}
