package config

import (
	"fmt"
	"os"
)

// Validate checks the startup invariants that should fail fast rather
// than surface as a runtime error mid-restore: non-zero counts, existing
// directories, existing command binaries. indexes_path, if set, must name
// an existing file (it is only read lazily by a partial restore with
// restore_indexes=true, but a missing path is still worth catching at
// startup).
func Validate(cfg *Config) error {
	if err := validateNumber(cfg.MaxJobs, "jobs"); err != nil {
		return err
	}
	if err := validateNumber(cfg.RestoreJobs, "restore jobs"); err != nil {
		return err
	}
	if err := validateDir(cfg.JoblogsPath, "Jobs log"); err != nil {
		return err
	}
	if err := validateDir(cfg.HTTPClient.DownloadDirectory, "HTTP downloads"); err != nil {
		return err
	}
	if err := validateFile(cfg.Commands.CreatedbPath, "createdb"); err != nil {
		return err
	}
	if err := validateFile(cfg.Commands.DropdbPath, "dropdb"); err != nil {
		return err
	}
	if err := validateFile(cfg.Commands.PgrestorePath, "pgrestore"); err != nil {
		return err
	}
	if cfg.IndexesPath != "" {
		if err := validateFile(cfg.IndexesPath, "indexes manifest"); err != nil {
			return err
		}
	}
	if len(cfg.SearchConfig.Directories) == 0 || len(cfg.SearchConfig.Extensions) == 0 {
		// Not a hard error: the scanner exits permanently with a warning
		// in this case rather than failing startup.
	}

	return nil
}

func validateNumber(value int, name string) error {
	if value > 0 {
		return nil
	}
	return fmt.Errorf("number of %s must be greater than zero, but %d given", name, value)
}

func validateDir(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s directory (%s) does not exist", name, path)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s directory (%s) is not a directory", name, path)
	}
	return nil
}

func validateFile(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s (%s) does not exist", name, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s (%s) is not a file", name, path)
	}
	return nil
}
