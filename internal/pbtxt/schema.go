package pbtxt

// Field hints taken from Triton's model_config.proto. Text format carries no
// type information, so without them a repeated field that appears once would
// decode as a scalar and enum values would be quoted on output.

var repeatedFields = map[string]bool{
	"input":                     true,
	"output":                    true,
	"dims":                      true,
	"shape":                     true,
	"instance_group":            true,
	"gpus":                      true,
	"versions":                  true,
	"preferred_batch_size":      true,
	"batch_input":               true,
	"batch_output":              true,
	"model_warmup":              true,
	"graph_spec":                true,
	"dim":                       true,
	"step":                      true,
	"profile":                   true,
	"secondary_devices":         true,
	"source_input":              true,
	"target_name":               true,
	"control_input":             true,
	"control":                   true,
	"state":                     true,
	"initial_state":             true,
	"op_library_filename":       true,
	"agents":                    true,
	"resources":                 true,
	"gpu_execution_accelerator": true,
	"cpu_execution_accelerator": true,
	"int32_false_true":          true,
	"fp32_false_true":           true,
	"bool_false_true":           true,
}

var mapFields = map[string]bool{
	"parameters":            true,
	"cc_model_filenames":    true,
	"metric_tags":           true,
	"input_map":             true,
	"output_map":            true,
	"priority_queue_policy": true,
}

// nestedMapFields are map-typed only inside the named parent message, e.g.
// graph_spec.input, while a top-level input stays a repeated message.
var nestedMapFields = map[string]bool{
	"model_warmup.inputs": true,
	"graph_spec.input":    true,
	"lower_bound.input":   true,
}

func isMapField(parent, name string) bool {
	return mapFields[name] || nestedMapFields[parent+"."+name]
}

var enumFields = map[string]bool{
	"data_type":      true,
	"format":         true,
	"kind":           true,
	"priority":       true,
	"timeout_action": true,
}

// fieldOrder approximates protobuf field-number order for output.
var fieldOrder = []string{
	"name",
	"platform",
	"backend",
	"runtime",
	"version_policy",
	"max_batch_size",
	"input",
	"output",
	"batch_input",
	"batch_output",
	"optimization",
	"dynamic_batching",
	"sequence_batching",
	"ensemble_scheduling",
	"instance_group",
	"default_model_filename",
	"cc_model_filenames",
	"metric_tags",
	"parameters",
	"model_warmup",
	"model_operations",
	"model_transaction_policy",
	"model_repository_agents",
	"response_cache",
	"key",
	"value",
	"count",
	"kind",
	"gpus",
	"data_type",
	"format",
	"dims",
}

var fieldRank = func() map[string]int {
	m := make(map[string]int, len(fieldOrder))
	for i, f := range fieldOrder {
		if _, ok := m[f]; !ok {
			m[f] = i
		}
	}
	return m
}()
