package jobs

// Payload values arrive either from JSON (float64, []interface{}) or from
// in-process submissions (native Go types); these helpers normalize both.

func stringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []interface{}:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func mapSlice(v interface{}) []map[string]interface{} {
	switch vals := v.(type) {
	case []map[string]interface{}:
		return vals
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(vals))
		for _, item := range vals {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

func floatValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
