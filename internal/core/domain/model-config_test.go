package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFramework(t *testing.T) {
	assert.NoError(t, ValidateFramework("pytorch"))
	assert.NoError(t, ValidateFramework("tensorflow"))

	err := ValidateFramework("onnx")
	assert.ErrorIs(t, err, ErrUnsupportedFramework)
	assert.Contains(t, err.Error(), "onnx")
	assert.Contains(t, err.Error(), "pytorch, tensorflow")

	assert.ErrorIs(t, ValidateFramework(""), ErrUnsupportedFramework)
	assert.ErrorIs(t, ValidateFramework("PyTorch"), ErrUnsupportedFramework)
}

func TestFramework_RemoteModelPath(t *testing.T) {
	assert.Equal(t, "models/resnet/3/model.savedmodel", FrameworkTensorFlow.RemoteModelPath("models", "resnet", 3))
	assert.Equal(t, "models/resnet/3", FrameworkPyTorch.RemoteModelPath("models", "resnet", 3))
	assert.Equal(t, "a/b/resnet/1", FrameworkPyTorch.RemoteModelPath("a/b/", "resnet", 1))
	assert.Equal(t, "models/resnet/config.pbtxt", ConfigObjectKey("models", "resnet"))

	assert.True(t, FrameworkTensorFlow.SupportsAutogen())
	assert.False(t, FrameworkPyTorch.SupportsAutogen())
}

func TestMergeModelConfigs_Precedence(t *testing.T) {
	base := ModelConfig{
		"name":           "resnet",
		"max_batch_size": 8,
		"version_policy": map[string]any{"latest": map[string]any{"num_versions": 1}},
		"input":          []any{map[string]any{"name": "x"}},
	}
	overrides := ModelConfig{
		"max_batch_size": 32,
		"input":          []any{map[string]any{"name": "conv1", "data_type": "TYPE_FP32"}},
	}

	merged := MergeModelConfigs(base, VersionPolicyConfig(4), overrides)

	assert.Equal(t, "resnet", merged["name"])
	assert.Equal(t, 32, merged["max_batch_size"])
	assert.Equal(t, []any{map[string]any{"name": "conv1", "data_type": "TYPE_FP32"}}, merged["input"])
	assert.Equal(t, map[string]any{"specific": map[string]any{"versions": []any{4}}}, merged["version_policy"])

	// inputs untouched
	assert.Equal(t, 8, base["max_batch_size"])
}

func TestMergeModelConfigs_OverridesBeatVersionPolicy(t *testing.T) {
	overrides := ModelConfig{
		"version_policy": map[string]any{"all": map[string]any{}},
	}

	merged := MergeModelConfigs(ModelConfig{}, VersionPolicyConfig(1), overrides)

	assert.Equal(t, map[string]any{"all": map[string]any{}}, merged["version_policy"])
}

func TestMergeModelConfigs_NilInputs(t *testing.T) {
	merged := MergeModelConfigs(nil, VersionPolicyConfig(2), nil)

	assert.Len(t, merged, 1)
	assert.Contains(t, merged, "version_policy")
}

func TestNormalizeKeys(t *testing.T) {
	cfg := ModelConfig{
		"maxBatchSize": 16,
		"instanceGroup": []any{
			map[string]any{"kind": "KIND_GPU", "gpus": []any{0}},
		},
		"dynamicBatching": map[string]any{"maxQueueDelayMicroseconds": 100},
		"parameters": map[string]any{
			"EXECUTION_ENV_PATH": map[string]any{"string_value": "/env"},
		},
	}

	out := NormalizeKeys(cfg)

	assert.Equal(t, 16, out["max_batch_size"])
	assert.Equal(t, []any{map[string]any{"kind": "KIND_GPU", "gpus": []any{0}}}, out["instance_group"])
	assert.Equal(t, map[string]any{"max_queue_delay_microseconds": 100}, out["dynamic_batching"])
	assert.Equal(t, map[string]any{
		"EXECUTION_ENV_PATH": map[string]any{"string_value": "/env"},
	}, out["parameters"])
	assert.NotContains(t, out, "maxBatchSize")
}

func TestMergeModelConfigs_CamelCaseCannotShadow(t *testing.T) {
	base := ModelConfig{"maxBatchSize": 8}
	overrides := ModelConfig{"max_batch_size": 64}

	merged := MergeModelConfigs(base, overrides)

	assert.Equal(t, ModelConfig{"max_batch_size": 64}, merged)
}

func TestNormalizeKeys_NestedMapFieldsKeepTensorNames(t *testing.T) {
	cfg := ModelConfig{
		"modelWarmup": []any{
			map[string]any{
				"name":      "warmup",
				"batchSize": 1,
				"inputs": map[string]any{
					"INPUT0": map[string]any{"dataType": "TYPE_FP32", "dims": []any{4}, "zeroData": true},
				},
			},
		},
		"optimization": map[string]any{
			"cuda": map[string]any{
				"graphSpec": []any{
					map[string]any{
						"batchSize": 8,
						"input":     map[string]any{"imageTensor": map[string]any{"dim": []any{3}}},
						"lowerBound": map[string]any{
							"input": map[string]any{"imageTensor": map[string]any{"dim": []any{1}}},
						},
					},
				},
			},
		},
	}

	out := MergeModelConfigs(nil, VersionPolicyConfig(1), cfg)

	warmup := out["model_warmup"].([]any)[0].(map[string]any)
	assert.Equal(t, 1, warmup["batch_size"])
	assert.Equal(t, map[string]any{
		"INPUT0": map[string]any{"data_type": "TYPE_FP32", "dims": []any{4}, "zero_data": true},
	}, warmup["inputs"])

	spec := out["optimization"].(map[string]any)["cuda"].(map[string]any)["graph_spec"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"imageTensor": map[string]any{"dim": []any{3}}}, spec["input"])
	assert.Equal(t, map[string]any{
		"input": map[string]any{"imageTensor": map[string]any{"dim": []any{1}}},
	}, spec["lower_bound"])
}

func TestNormalizeKeys_TopLevelInputStaysRepeated(t *testing.T) {
	out := NormalizeKeys(ModelConfig{
		"input": []any{map[string]any{"name": "INPUT0", "dataType": "TYPE_FP32"}},
	})

	assert.Equal(t, []any{map[string]any{"name": "INPUT0", "data_type": "TYPE_FP32"}}, out["input"])
}
