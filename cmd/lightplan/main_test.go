package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunStatus_Table(t *testing.T) {
	path := writeFile(t, "scenarios.json", `[
		{"scenario": {"id": "a", "name": "Evening"}, "status": {"result": {"active": true, "actionsSent": 2}}},
		{"scenario": {"id": "b", "name": "Off", "disabled": true}}
	]`)

	var out bytes.Buffer
	require.NoError(t, runStatus([]string{"--now", "2024-06-01T17:00:00Z", path}, &out))

	text := out.String()
	assert.Contains(t, text, "Evening")
	assert.Contains(t, text, "running")
	assert.Contains(t, text, "off")
}

func TestRunStatus_JSON(t *testing.T) {
	path := writeFile(t, "scenarios.json", `{"items": [{"id": "b", "name": "Off", "disabled": true}]}`)

	var out bytes.Buffer
	require.NoError(t, runStatus([]string{"--json", path}, &out))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0]["id"])
	assert.Equal(t, "off", rows[0]["status"].(map[string]any)["kind"])
}

func TestRunStatus_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, runStatus(nil, &out))
	assert.Error(t, runStatus([]string{filepath.Join(t.TempDir(), "missing.json")}, &out))
	assert.Error(t, runStatus([]string{"--now", "yesterday", writeFile(t, "x.json", `[]`)}, &out))
	assert.Error(t, runStatus([]string{writeFile(t, "bad.json", `{`)}, &out))
}

func TestRunHistory_ResolvesScenarioNames(t *testing.T) {
	scenarios := writeFile(t, "scenarios.json", `[{"id": "s1", "name": "Bedroom", "type": "auto-light-v1"}]`)
	events := writeFile(t, "events.json", `{"events": [
		{"id": "e1", "ts": "2024-06-01T10:00:00Z", "scenarioId": "s1", "brightness": 40, "origin": "schedule"},
		{"id": "e2", "ts": "2024-06-01T11:00:00Z", "scenarioId": "s1", "brightness": 70, "origin": "schedule"}
	]}`)

	var out bytes.Buffer
	require.NoError(t, runHistory([]string{"--scenarios", scenarios, events}, &out))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "e2", got[0]["id"])
	assert.Equal(t, "Bedroom", got[0]["scenarioName"])
	assert.Equal(t, "auto-light-v1", got[0]["scenarioType"])
	assert.Equal(t, true, got[0]["showBrightness"])
	assert.Equal(t, false, got[1]["showBrightness"], "first event of a scenario")
}

func TestRunSun_WithExplicitLocation(t *testing.T) {
	var out bytes.Buffer
	err := runSun([]string{"-c", filepath.Join(t.TempDir(), "absent.yaml"), "--tz", "UTC"}, &out)
	assert.Error(t, err)

	out.Reset()
	require.NoError(t, runSun([]string{
		"-c", writeFile(t, "config.yaml", "geo:\n  timezone: Europe/Moscow\n"),
		"--date", "2024-06-21",
	}, &out))
	assert.Contains(t, out.String(), "2024-06-21 (Europe/Moscow)")
	assert.Contains(t, out.String(), "sunrise  03:")
}
