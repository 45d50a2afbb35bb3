package utils

import (
	"fmt"
	"os"
)

func ReadFileBuffer(filePath string) ([]byte, error) {
	buffer, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error while reading file :%v", err)
	}
	return buffer, nil
}

func WriteFileBuffer(filePath string, buffer []byte) error {
	if err := os.WriteFile(filePath, buffer, 0o644); err != nil {
		return fmt.Errorf("error while writing file %q: %w", filePath, err)
	}
	return nil
}
