package transfer

import (
	"errors"
	"fmt"
	"os"

	"github.com/mahirjain10/video-watermark/internal/types"
)

// Verify checks that path exists and is non-empty, independent of what the
// transfer reported. It returns the file size.
func Verify(path string) (int64, error) {
	const op = "verify"
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, types.NewError(types.VerificationFailed, op, fmt.Sprintf("downloaded file not found at %s", path))
	}
	if err != nil {
		return 0, &types.FlowError{Kind: types.VerificationFailed, Op: op, Message: "stat error: " + err.Error(), Err: err}
	}
	if info.IsDir() {
		return 0, types.NewError(types.VerificationFailed, op, fmt.Sprintf("%s is a directory", path))
	}
	if info.Size() == 0 {
		return 0, types.NewError(types.VerificationFailed, op, fmt.Sprintf("downloaded file at %s has zero size", path))
	}
	return info.Size(), nil
}
