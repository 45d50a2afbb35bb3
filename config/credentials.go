package config

import (
	"context"
	"os"

	godotenv "github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mahirjain10/video-watermark/internal/types"
)

// EnvCredentials reads CLOUD_NAME and UPLOAD_PRESET from the process
// environment, falling back to a key=value file. It never fails: anything it
// cannot find comes back empty.
type EnvCredentials struct {
	File   string
	Logger zerolog.Logger
}

func (e EnvCredentials) LoadEnv(ctx context.Context) types.Credentials {
	cloudName := os.Getenv("CLOUD_NAME")
	uploadPreset := os.Getenv("UPLOAD_PRESET")
	if cloudName != "" || uploadPreset != "" {
		return types.Credentials{CloudName: cloudName, UploadPreset: uploadPreset}
	}

	if e.File == "" {
		return types.Credentials{}
	}
	values, err := godotenv.Read(e.File)
	if err != nil {
		e.Logger.Warn().Err(err).Str("file", e.File).Msg("could not load credentials file")
		return types.Credentials{}
	}
	return types.Credentials{
		CloudName:    values["CLOUD_NAME"],
		UploadPreset: values["UPLOAD_PRESET"],
	}
}
