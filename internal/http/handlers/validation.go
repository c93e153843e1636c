package handlers

import (
	"strings"

	"github.com/rogerio-castellano/pos-terminal/internal/pos"
)

func validateOperation(op OperationRequest) error {
	var problems []string
	if strings.TrimSpace(op.Type) == "" {
		problems = append(problems, "type is required")
	}
	if len(op.Payload) == 0 {
		problems = append(problems, "payload is required")
	}
	if len(problems) > 0 {
		return &pos.ValidationError{Problems: problems}
	}
	return nil
}
