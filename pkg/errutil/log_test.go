// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package errutil_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridhold/gridhold/pkg/errutil"
)

func TestLogError_OopsErrorWithCollaborator(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("CLAIM_NOT_FOUND").
		In("claim").
		With("collaborator", "store").
		With("claim_id", 42).
		Errorf("update hit zero rows")

	errutil.LogError(logger, "rename failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "rename failed", entry["msg"])
	assert.Equal(t, "CLAIM_NOT_FOUND", entry["code"])
	assert.Equal(t, "store", entry["collaborator"])
}

func TestLogError_OopsErrorWithoutCollaborator(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("INVALID_PERMISSION_PATTERN").Errorf("bad glob")

	errutil.LogError(logger, "grant failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INVALID_PERMISSION_PATTERN", entry["code"])
	assert.NotContains(t, entry, "collaborator")
}

func TestLogError_StandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "hydration failed", errors.New("connection reset"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "connection reset")
}

func TestCollaborator(t *testing.T) {
	tagged := oops.With("collaborator", "geofence").Errorf("volume rejected")
	assert.Equal(t, "geofence", errutil.Collaborator(tagged))

	untagged := oops.Errorf("no attribution")
	assert.Empty(t, errutil.Collaborator(untagged))

	assert.Empty(t, errutil.Collaborator(errors.New("plain")))
}
