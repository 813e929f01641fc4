package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ArtifactScheme prefixes tracker artifact references in config.
const ArtifactScheme = "wandb-artifact://"

// ArtifactRef identifies a single version of a W&B artifact.
type ArtifactRef struct {
	Entity  string `json:"entity"`
	Project string `json:"project"`
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// ParseArtifactRef parses "wandb-artifact://entity/project/name:vN".
// The scheme is optional. The version must be an integer since Triton
// keys model directories by number.
func ParseArtifactRef(s string) (ArtifactRef, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), ArtifactScheme)

	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return ArtifactRef{}, fmt.Errorf("%w: %q", ErrInvalidArtifactRef, s)
	}
	for _, p := range parts {
		if p == "" {
			return ArtifactRef{}, fmt.Errorf("%w: %q", ErrInvalidArtifactRef, s)
		}
	}

	idx := strings.LastIndex(parts[2], ":v")
	if idx <= 0 {
		return ArtifactRef{}, fmt.Errorf("%w: %q", ErrInvalidArtifactRef, s)
	}

	name, rawVersion := parts[2][:idx], parts[2][idx+2:]
	version, err := strconv.Atoi(rawVersion)
	if err != nil || version < 0 {
		return ArtifactRef{}, fmt.Errorf("%w: got %q", ErrInvalidModelVersion, rawVersion)
	}

	return ArtifactRef{
		Entity:  parts[0],
		Project: parts[1],
		Name:    name,
		Version: version,
	}, nil
}

// ModelName is the Triton model name the artifact is served under.
func (r ArtifactRef) ModelName() string {
	return r.Name
}

// QualifiedName is the "name:vN" form the tracker resolves.
func (r ArtifactRef) QualifiedName() string {
	return fmt.Sprintf("%s:v%d", r.Name, r.Version)
}

func (r ArtifactRef) String() string {
	return fmt.Sprintf("%s%s/%s/%s", ArtifactScheme, r.Entity, r.Project, r.QualifiedName())
}
