package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeAllowsInstall(t *testing.T) {
	cases := map[Mode]bool{
		DiffOnly:                false,
		UpgradeWait:              false,
		UpgradeNoWait:            false,
		UpgradeInstall:           true,
		UpgradeInstallNoWait:     true,
		UpgradeInstallWait:       true,
		UpgradeRecreateWait:      false,
		UpgradeWaitMaybeRollback: false,
	}
	for mode, want := range cases {
		assert.Equal(t, want, mode.AllowsInstall(), "mode %s", mode)
	}
}

func TestModeWaitsForRollout(t *testing.T) {
	cases := map[Mode]bool{
		DiffOnly:                 false,
		UpgradeWait:              true,
		UpgradeNoWait:            false,
		UpgradeInstall:           false,
		UpgradeInstallNoWait:     false,
		UpgradeInstallWait:       true,
		UpgradeRecreateWait:      true,
		UpgradeWaitMaybeRollback: true,
	}
	for mode, want := range cases {
		assert.Equal(t, want, mode.WaitsForRollout(), "mode %s", mode)
	}
}

func TestModeForcesRecreateOnlyRecreateWait(t *testing.T) {
	assert.True(t, UpgradeRecreateWait.ForcesRecreate())
	assert.False(t, UpgradeWait.ForcesRecreate())
}

func TestModeAutoRollbackOnlyMaybeRollback(t *testing.T) {
	assert.True(t, UpgradeWaitMaybeRollback.AutoRollback())
	assert.False(t, UpgradeWait.AutoRollback())
}
