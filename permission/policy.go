package permission

import "errors"

const (
	// ActionManage is the wildcard action. A rule with this action grants
	// every action on its subject.
	ActionManage = "manage"
	// SubjectAll is the wildcard subject. A rule with this subject grants
	// its action on every subject.
	SubjectAll = "all"
)

// Rule grants a single action on a single subject.
type Rule struct {
	Action  string
	Subject string
}

// Policy is an immutable role-to-rules table. The zero value denies
// everything; build one with NewPolicy.
type Policy struct {
	roles map[string][]Rule
}

// NewPolicy copies the given role table and validates it. Unknown roles
// queried later simply deny, so the table only needs the roles that should
// be granted anything at all.
func NewPolicy(roles map[string][]Rule) (*Policy, error) {
	copied := make(map[string][]Rule, len(roles))
	for role, rules := range roles {
		if role == "" {
			return nil, errors.New("role name empty")
		}
		list := make([]Rule, len(rules))
		for i, r := range rules {
			if r.Action == "" || r.Subject == "" {
				return nil, errors.New("rule for role " + role + " has empty action or subject")
			}
			list[i] = r
		}
		copied[role] = list
	}
	return &Policy{roles: copied}, nil
}

// Can reports whether the role is allowed to perform the action on the
// subject. Wildcards apply on either side of the rule.
func (p *Policy) Can(role, action, subject string) bool {
	if p == nil || role == "" {
		return false
	}
	for _, r := range p.roles[role] {
		actionOK := r.Action == action || r.Action == ActionManage
		subjectOK := r.Subject == subject || r.Subject == SubjectAll
		if actionOK && subjectOK {
			return true
		}
	}
	return false
}

// Roles returns the names of the roles the policy knows about.
func (p *Policy) Roles() []string {
	names := make([]string, 0, len(p.roles))
	for role := range p.roles {
		names = append(names, role)
	}
	return names
}

// Rules returns a copy of the rules granted to the role, nil for unknown
// roles.
func (p *Policy) Rules(role string) []Rule {
	rules, ok := p.roles[role]
	if !ok {
		return nil
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
