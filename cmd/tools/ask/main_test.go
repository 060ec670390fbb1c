package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-assistant/internal/models"
)

func TestRender(t *testing.T) {
	plan := &models.QueryPlan{Type: models.PlanTypeCrisisAnalysis, Description: "Crisis response analysis and action plan"}

	tests := []struct {
		name    string
		result  models.QueryResult
		asJSON  bool
		want    []string
		wantErr bool
	}{
		{
			name:   "answered",
			result: models.QueryResult{Success: true, Response: "We have 2 critical cases.", Plan: plan},
			want:   []string{"[crisis_analysis] Crisis response analysis and action plan", "We have 2 critical cases."},
		},
		{
			name: "degraded with notice",
			result: models.QueryResult{
				Response: "fallback text",
				Notice:   "The data service is temporarily unavailable.",
				Plan:     plan,
			},
			want: []string{"The data service is temporarily unavailable.", "fallback text"},
		},
		{
			name:    "rejected",
			result:  models.QueryResult{Response: "Your question could not be processed.", Errors: []string{"forbidden"}},
			want:    []string{"Your question could not be processed."},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := render(&buf, tt.result, tt.asJSON)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := render(&buf, models.QueryResult{Success: true, Response: "ok", Stages: []models.Stage{models.StageReceived}}, true)
	require.NoError(t, err)

	var decoded models.QueryResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded.Response)
	assert.Equal(t, []models.Stage{models.StageReceived}, decoded.Stages)
}

func TestRootCmd_RequiresQuestion(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestRootCmd_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", "testdata/missing.yaml", "Show me critical cases"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
