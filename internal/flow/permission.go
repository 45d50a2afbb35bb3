package flow

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// DirPermission grants storage access when the download directory can be
// created and written to.
type DirPermission struct {
	Dir    string
	Logger zerolog.Logger
}

func (p DirPermission) RequestStoragePermission(ctx context.Context) bool {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		p.Logger.Warn().Err(err).Str("dir", p.Dir).Msg("permission error")
		return false
	}
	probe, err := os.CreateTemp(p.Dir, ".write-check-*")
	if err != nil {
		p.Logger.Warn().Err(err).Str("dir", p.Dir).Msg("permission error")
		return false
	}
	name := probe.Name()
	probe.Close()
	_ = os.Remove(name)
	return true
}

type StaticPermission bool

func (p StaticPermission) RequestStoragePermission(context.Context) bool {
	return bool(p)
}
