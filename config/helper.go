package config

import (
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
)

// HomeDir returns ~/.silverpipe.
func HomeDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return path.Join(home, MainDir), nil
}

// DefaultPath returns the full path of the main config file.
func DefaultPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(dir, MainFileFullName), nil
}

// makeDir wll make the given directory if it does not already exist.
func makeDir(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %v", dir)
		}
	} else if err != nil {
		return err
	}
	return nil
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// Exists reports whether fileName is a regular file.
func Exists(fileName string) bool {
	return fileExists(fileName)
}

// ExpandPath expands a leading ~ in fileName.
func ExpandPath(fileName string) (string, error) {
	return homedir.Expand(fileName)
}
