package helpers

import (
	"os"

	"tabledit/src/settings"

	"go.uber.org/zap"
)

// DeleteDataFile deletes a file
func DeleteDataFile(filePath string) error {
	return os.Remove(filePath)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	args := settings.GetSettings()

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			if args.Debug && args.Verbose {
				logger.Infof("File does not exist: %s", filename)
			}
			return false // File does not exist
		}

		logger.Infof("Error checking file %s for existence: %s", filename, err)
		return false // Some other error occurred
	}

	return !info.IsDir() // Return true if it's not a directory
}
