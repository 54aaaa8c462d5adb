package orchestrator

import (
	"testing"

	"github.com/mboxbridge/mailxfer/internal/transfer"
)

func TestRewriteRuleFromString(t *testing.T) {
	tests := []struct {
		in   string
		want transfer.RewriteRule
	}{
		{"off", transfer.Off},
		{"OFF", transfer.Off},
		{"always-prefix", transfer.AlwaysPrefix},
		{"prefix-when-nested", transfer.PrefixWhenNested},
		{"", transfer.PrefixWhenNested},
		{"garbage", transfer.PrefixWhenNested},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := rewriteRuleFromString(tt.in); got != tt.want {
				t.Errorf("rewriteRuleFromString(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
