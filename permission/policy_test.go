package permission

import "testing"

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(map[string][]Rule{
		"admin": {
			{Action: ActionManage, Subject: SubjectAll},
		},
		"member": {
			{Action: "read", Subject: "profile"},
			{Action: "update", Subject: "profile"},
		},
	})
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	return p
}

func TestCanExactMatch(t *testing.T) {
	p := testPolicy(t)

	if !p.Can("member", "read", "profile") {
		t.Fatal("member should read profile")
	}
	if p.Can("member", "delete", "profile") {
		t.Fatal("member must not delete profile")
	}
	if p.Can("member", "read", "users") {
		t.Fatal("member must not read users")
	}
}

func TestCanWildcards(t *testing.T) {
	p := testPolicy(t)

	for _, subject := range []string{"profile", "users", "anything"} {
		for _, action := range []string{"read", "update", "delete", "manage"} {
			if !p.Can("admin", action, subject) {
				t.Fatalf("admin should be allowed %s on %s", action, subject)
			}
		}
	}
}

func TestCanUnknownRole(t *testing.T) {
	p := testPolicy(t)

	if p.Can("ghost", "read", "profile") {
		t.Fatal("unknown role must deny")
	}
	if p.Can("", "read", "profile") {
		t.Fatal("empty role must deny")
	}
}

func TestNilPolicyDenies(t *testing.T) {
	var p *Policy
	if p.Can("admin", "manage", "all") {
		t.Fatal("nil policy must deny")
	}
}

func TestNewPolicyValidation(t *testing.T) {
	if _, err := NewPolicy(map[string][]Rule{"": {{Action: "a", Subject: "b"}}}); err == nil {
		t.Fatal("empty role name should be rejected")
	}
	if _, err := NewPolicy(map[string][]Rule{"r": {{Action: "", Subject: "b"}}}); err == nil {
		t.Fatal("empty action should be rejected")
	}
}

func TestPolicyCopiesInput(t *testing.T) {
	rules := map[string][]Rule{
		"member": {{Action: "read", Subject: "profile"}},
	}
	p, err := NewPolicy(rules)
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	rules["member"][0] = Rule{Action: "manage", Subject: "all"}

	if p.Can("member", "delete", "users") {
		t.Fatal("mutating the input map must not change the policy")
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	p := testPolicy(t)

	rules := p.Rules("member")
	if len(rules) != 2 {
		t.Fatalf("rules = %v", rules)
	}
	rules[0] = Rule{Action: ActionManage, Subject: SubjectAll}

	if p.Can("member", "delete", "users") {
		t.Fatal("mutating the returned slice must not change the policy")
	}

	if p.Rules("ghost") != nil {
		t.Fatal("unknown role should return nil")
	}
}
