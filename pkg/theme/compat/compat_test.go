package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/themepack/go/themepack/pkg/theme/asset"
	themeerrors "github.com/provide-io/themepack/go/themepack/pkg/theme/errors"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name                 string
		format, min, running Version
		want                 Status
	}{
		{"same version", 3, 1, 3, Compatible},
		{"same version, min equal", 3, 3, 3, Compatible},
		{"one newer, min at running", 4, 3, 3, CompatibleWithLoss},
		{"one newer, min below running", 4, 1, 3, CompatibleWithLoss},
		{"much newer, min below running", 9, 2, 3, CompatibleWithLoss},
		{"newer, min above running", 5, 4, 3, Incompatible},
		{"older format", 2, 1, 3, Incompatible},
		{"min above own format", 3, 4, 3, Incompatible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.format, tt.min, tt.running)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want != Incompatible, got.Loadable())
			if tt.want == Incompatible {
				assert.NotEmpty(t, got.Reason)
				require.ErrorIs(t, got.Err(), themeerrors.ErrIncompatible)
			} else {
				require.NoError(t, got.Err())
			}
		})
	}
}

func TestWithDroppedCopies(t *testing.T) {
	ids := []asset.ID{"icon.new"}
	o := Decide(4, 3, 3).WithDropped(ids)
	ids[0] = "changed"
	assert.Equal(t, []asset.ID{"icon.new"}, o.Dropped)
	assert.Equal(t, "compatible with loss (1 assets dropped)", o.String())
}
