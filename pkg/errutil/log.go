// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// collaboratorKey is the oops context key the claim engine attaches when a
// store, geofence, economy, or limits call fails.
const collaboratorKey = "collaborator"

// LogError logs err through logger with structured context. Oops errors
// contribute their code and context map; when the context names a failing
// collaborator it is promoted to a top-level attribute so log queries can
// group failures by backing service.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != "" {
		attrs = append(attrs, "code", code)
	}
	ctx := oopsErr.Context()
	if collab, ok := ctx[collaboratorKey].(string); ok && collab != "" {
		attrs = append(attrs, collaboratorKey, collab)
	}
	if len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}

// Collaborator reports which external collaborator an engine error was
// attributed to, or "" when err carries no such attribution.
func Collaborator(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	collab, _ := oopsErr.Context()[collaboratorKey].(string)
	return collab
}
