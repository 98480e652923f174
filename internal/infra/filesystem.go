package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"github.com/vkozyrev/chanrelay/internal/config"
)

// GetWorkDir resolves a path under the relay's dot directory, creating
// it on first use.
func GetWorkDir(path ...string) string {
	parts := append([]string{config.Get().DotPath}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		log.Fatalln(err)
	}
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		log.Fatalln(err)
	}
	return workDir
}

// GetStagingDir is where downloaded media lives between enqueue and delivery.
func GetStagingDir() string {
	return GetWorkDir("staging")
}
