package gate_test

import (
	"testing"

	"github.com/diewo77/go-eventdesk/gate"
)

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		granted   gate.Permission
		requested gate.Permission
		want      bool
	}{
		{gate.PermissionSuperAdmin, "booking:delete", true},
		{"poll:update", "poll:update", true},
		{"poll:*", "poll:delete", true},
		{"poll:*", "venue:delete", false},
		{"poll:view", "poll:update", false},
		{"broken", "poll:view", false},
	}
	for _, tt := range tests {
		if got := tt.granted.Matches(tt.requested); got != tt.want {
			t.Errorf("%s matches %s = %v, want %v", tt.granted, tt.requested, got, tt.want)
		}
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.NewPermission("booking", gate.ActionTransition).Parse()
	if res != "booking" || act != gate.ActionTransition {
		t.Fatalf("unexpected parse result %q %q", res, act)
	}
	if res, act := gate.Permission("nocolon").Parse(); res != "" || act != "" {
		t.Fatalf("expected empty parse, got %q %q", res, act)
	}
}
