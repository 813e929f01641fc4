package domain

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

type Framework string

const (
	FrameworkPyTorch    Framework = "pytorch"
	FrameworkTensorFlow Framework = "tensorflow"
)

// ValidFrameworks lists the frameworks the deployer knows how to lay out
// in a Triton model repository.
var ValidFrameworks = []Framework{FrameworkPyTorch, FrameworkTensorFlow}

func ValidateFramework(framework string) error {
	for _, f := range ValidFrameworks {
		if string(f) == framework {
			return nil
		}
	}
	names := make([]string, 0, len(ValidFrameworks))
	for _, f := range ValidFrameworks {
		names = append(names, string(f))
	}
	return fmt.Errorf("%w %s -- must be one of [%s]", ErrUnsupportedFramework, framework, strings.Join(names, ", "))
}

// SupportsAutogen reports whether Triton can derive a config for the
// framework's model format without a config.pbtxt.
func (f Framework) SupportsAutogen() bool {
	return f == FrameworkTensorFlow
}

// RemoteModelPath is where the artifact files land inside the repository.
func (f Framework) RemoteModelPath(repoPath, modelName string, version int) string {
	versionDir := path.Join(repoPath, modelName, strconv.Itoa(version))
	if f == FrameworkTensorFlow {
		return path.Join(versionDir, "model.savedmodel")
	}
	return versionDir
}

// ConfigObjectKey is the object key of the model-level config.pbtxt.
func ConfigObjectKey(repoPath, modelName string) string {
	return path.Join(repoPath, modelName, "config.pbtxt")
}
