package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// RemoveLocalOutput removes a downloaded file and its partial sibling. A file
// that is already gone is not an error.
func RemoveLocalOutput(path string) error {
	var errs []string
	for _, p := range []string{path, path + ".part"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Sprintf("remove %q: %v", p, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %s", strings.Join(errs, " | "))
	}
	return nil
}
