package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunMetricCoercesStrings(t *testing.T) {
	metric, err := NewRunMetric(map[string]any{
		"key":       "acc",
		"value":     0.9,
		"step":      "3",
		"timestamp": "4000",
	})
	require.NoError(t, err)
	assert.Equal(t, RunMetric{Key: "acc", Value: 0.9, Step: 3, Timestamp: 4000}, metric)
}

func TestNewRunMetricMissingField(t *testing.T) {
	full := map[string]any{"key": "loss", "value": 0.5, "step": 1, "timestamp": 1000}

	for field := range full {
		t.Run(field, func(t *testing.T) {
			input := make(map[string]any)
			for k, v := range full {
				if k != field {
					input[k] = v
				}
			}

			_, err := NewRunMetric(input)
			var missing *MissingFieldError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, field, missing.Field)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestNewRunMetricBadStep(t *testing.T) {
	_, err := NewRunMetric(map[string]any{"key": "loss", "value": 0.5, "step": "one", "timestamp": 1000})
	assert.ErrorIs(t, err, ErrParse)
}

func TestNewRunParam(t *testing.T) {
	param, err := NewRunParam(map[string]any{"key": "lr", "value": "0.01"})
	require.NoError(t, err)
	assert.Equal(t, Param("lr", "0.01"), param)

	_, err = NewRunParam(map[string]any{"key": "lr"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = NewRunParam(map[string]any{"value": "0.01"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNewRunDataLastMetricWins(t *testing.T) {
	data, err := NewRunData(map[string]any{
		"metrics": []any{
			map[string]any{"key": "loss", "value": 0.5, "step": 1, "timestamp": 1000},
			map[string]any{"key": "loss", "value": 0.4, "step": 2, "timestamp": 2000},
		},
	})
	require.NoError(t, err)
	require.Len(t, data.Metrics, 1)
	assert.Equal(t, 0.4, data.Metrics["loss"].Value)
	assert.Equal(t, int64(2), data.Metrics["loss"].Step)
}

func TestNewRunDataLastParamWins(t *testing.T) {
	data, err := NewRunData(map[string]any{
		"params": []any{
			map[string]any{"key": "lr", "value": "0.1"},
			map[string]any{"key": "lr", "value": "0.01"},
			map[string]any{"key": "epochs", "value": "10"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]RunParam{
		"lr":     Param("lr", "0.01"),
		"epochs": Param("epochs", "10"),
	}, data.Params)
}

func TestNewRunDataParamsPresence(t *testing.T) {
	absent, err := NewRunData(map[string]any{})
	require.NoError(t, err)
	params, ok := absent.ParamMap()
	assert.False(t, ok)
	assert.Nil(t, params)
	assert.NotNil(t, absent.Metrics)
	assert.Empty(t, absent.Metrics)
	assert.Nil(t, absent.Tags)

	empty, err := NewRunData(map[string]any{"params": []any{}})
	require.NoError(t, err)
	params, ok = empty.ParamMap()
	assert.True(t, ok)
	assert.NotNil(t, params)
	assert.Empty(t, params)
}

func TestNewRunDataTagsPassThrough(t *testing.T) {
	tags := []any{
		map[string]any{"key": "mlflow.runName", "value": "sweep-1"},
		map[string]any{"key": "team", "value": "search"},
		"not a tag",
	}
	data, err := NewRunData(map[string]any{"tags": tags})
	require.NoError(t, err)
	assert.Equal(t, tags, data.Tags)
	assert.Equal(t, map[string]string{"mlflow.runName": "sweep-1", "team": "search"}, data.TagMap())

	opaque, err := NewRunData(map[string]any{"tags": map[string]any{"team": "search"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"team": "search"}, opaque.Tags)
	assert.Empty(t, opaque.TagMap())
}

func TestNewRunDataErrors(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  error
	}{
		{name: "metrics not a list", input: map[string]any{"metrics": "loss"}, want: ErrParse},
		{name: "metric not an object", input: map[string]any{"metrics": []any{1}}, want: ErrParse},
		{name: "metric missing step", input: map[string]any{"metrics": []any{
			map[string]any{"key": "loss", "value": 0.5, "timestamp": 1000},
		}}, want: ErrMissingField},
		{name: "param missing value", input: map[string]any{"params": []any{
			map[string]any{"key": "lr"},
		}}, want: ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunData(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewRunDataErrorNamesEntry(t *testing.T) {
	_, err := NewRunData(map[string]any{"metrics": []any{
		map[string]any{"key": "loss", "value": 0.5, "step": 1, "timestamp": 1000},
		map[string]any{"key": "loss", "value": 0.5, "step": 1},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics[1]")
}

func TestNewMetricHistoryKeepsEveryPoint(t *testing.T) {
	history, err := NewMetricHistory(map[string]any{
		"metrics": []any{
			map[string]any{"key": "loss", "value": 0.5, "step": 1, "timestamp": 1000},
			map[string]any{"key": "loss", "value": 0.4, "step": "2", "timestamp": "2000"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []RunMetric{
		{Key: "loss", Value: 0.5, Step: 1, Timestamp: 1000},
		{Key: "loss", Value: 0.4, Step: 2, Timestamp: 2000},
	}, history)

	_, err = NewMetricHistory(map[string]any{})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = NewMetricHistory(map[string]any{"metrics": []any{map[string]any{"key": "loss"}}})
	assert.ErrorIs(t, err, ErrMissingField)
}
