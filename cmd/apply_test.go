package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shipcat/shipcat/internal/apply"
)

func TestApplyModeFromFlags(t *testing.T) {
	tests := []struct {
		name string
		af   *applyFlags
		want apply.Mode
	}{
		{"default", &applyFlags{}, apply.UpgradeWait},
		{"no-wait", &applyFlags{noWait: true}, apply.UpgradeNoWait},
		{"install", &applyFlags{install: true}, apply.UpgradeInstallWait},
		{"install no-wait", &applyFlags{install: true, noWait: true}, apply.UpgradeInstallNoWait},
		{"recreate", &applyFlags{recreate: true}, apply.UpgradeRecreateWait},
		{"rollback", &applyFlags{rollback: true}, apply.UpgradeWaitMaybeRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyMode(tt.af))
		})
	}
}
