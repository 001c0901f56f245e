package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileValidator checks local inputs and outputs for the command line tools
type FileValidator struct {
	logger     *slog.Logger
	extensions []string
}

// NewFileValidator creates a new file validator. With no extensions it
// accepts DefaultExtension.
func NewFileValidator(logger *slog.Logger, extensions ...string) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extensions) == 0 {
		extensions = []string{DefaultExtension}
	}
	return &FileValidator{
		logger:     logger,
		extensions: extensions,
	}
}

// ValidateBatch logs and returns the result of ValidateBatch with the
// validator's extensions
func (v *FileValidator) ValidateBatch(names []string) error {
	err := ValidateBatch(names, v.extensions)
	if err != nil {
		v.logger.Warn("Batch rejected",
			slog.Int("file_count", len(names)),
			slog.String("error", err.Error()))
	}
	return err
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateParquetFile checks that path is a readable file with an accepted
// extension
func (v *FileValidator) ValidateParquetFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	if !HasAllowedExtension(path, v.extensions) {
		v.logger.Error("File has an unsupported extension",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return &ValidationError{Kind: KindUnsupportedExtension, Files: []string{path}}
	}
	return nil
}
