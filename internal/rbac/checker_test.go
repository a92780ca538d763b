package rbac

import "testing"

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil) // default role table

	tests := []struct {
		role string
		perm string
		want bool
	}{
		{"student", "attempt:submit", true},
		{"student", "ai:chat", true},
		{"student", "experiment:create", false},
		{"student", "student:list", false},

		{"faculty", "experiment:create", true},
		{"faculty", "question:generate", true},
		{"faculty", "roster:bulk", true},
		{"faculty", "attempt:submit", false},
		{"faculty", "faculty:manage", false},

		{"admin", "faculty:manage", true},
		{"admin", "experiment:create", true},
		{"admin", "anything:at-all", true},

		{"", "attempt:submit", false},
		{"unknown-role", "attempt:submit", false},
	}
	for _, tc := range tests {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("faculty", "faculty:manage", "experiment:create") {
		t.Error("Any should pass when one permission matches")
	}
	if c.Any("student", "experiment:create", "faculty:manage") {
		t.Error("Any should fail when none match")
	}
}

func TestCheckerPrefixWildcard(t *testing.T) {
	c := NewChecker(map[string][]string{
		"auditor": {"report:*"},
	})
	if !c.Has("auditor", "report:read") {
		t.Error("prefix wildcard did not match")
	}
	if c.Has("auditor", "roster:create") {
		t.Error("prefix wildcard matched a foreign permission")
	}
}
