package assistant

import "testing"

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", policy.MaxAttempts)
	}

	tests := []struct {
		name  string
		steps []Step
		want  bool
	}{
		{"no steps", nil, true},
		{"sentinel first", []Step{{Text: sentinelReply}}, true},
		{"sentinel with surrounding whitespace", []Step{{Text: "  " + sentinelReply + "\n"}}, true},
		{"normal reply", []Step{{Text: "好的，已經幫你記下來了"}}, false},
		{"sentinel later is fine", []Step{{Text: "正常回覆"}, {Text: sentinelReply}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsRetryable(tt.steps); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApologyStep(t *testing.T) {
	step := ApologyStep()
	if step.Text != apologyText {
		t.Errorf("ApologyStep text = %q", step.Text)
	}
	if len(step.ToolCalls) != 0 || len(step.ToolResults) != 0 {
		t.Error("apology step must carry no tool activity")
	}
}
