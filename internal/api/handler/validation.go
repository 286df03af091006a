package handler

import (
	"regexp"

	"github.com/maraichr/pipescope/pkg/apierr"
)

// Harness entity identifiers.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][0-9a-zA-Z_$]{0,127}$`)

func validatePipelineID(id string) *apierr.Error {
	if id == "" {
		return nil
	}
	if !identifierRegex.MatchString(id) {
		return apierr.InvalidPipelineID()
	}
	return nil
}
