package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/benleytuano/ts-api-service/internal/domain"
)

// Policy maps roles to granted capabilities.
type Policy struct {
	grants map[domain.Role]map[domain.Capability]struct{}
}

// policyFile is the on-disk shape:
//
//	roles:
//	  agent: [tickets.create, tickets.claim]
type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// NewPolicy builds a policy from explicit grants.
func NewPolicy(grants map[domain.Role][]domain.Capability) *Policy {
	p := &Policy{grants: make(map[domain.Role]map[domain.Capability]struct{}, len(grants))}
	for role, caps := range grants {
		set := make(map[domain.Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		p.grants[role] = set
	}
	return p
}

// DefaultPolicy grants the stock capabilities.
func DefaultPolicy() *Policy {
	return NewPolicy(domain.DefaultCapabilities())
}

// LoadPolicy reads grants from a YAML file. An empty path yields DefaultPolicy. Roles missing from
// the file keep their default grants.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes YAML grants over the defaults.
func ParsePolicy(raw []byte) (*Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	grants := domain.DefaultCapabilities()
	for name, caps := range file.Roles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return nil, err
		}
		parsed := make([]domain.Capability, 0, len(caps))
		for _, c := range caps {
			capability, err := domain.ParseCapability(c)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", role, err)
			}
			parsed = append(parsed, capability)
		}
		grants[role] = parsed
	}
	return NewPolicy(grants), nil
}

// Can reports whether role holds capability. A nil policy falls back to the defaults.
func (p *Policy) Can(role domain.Role, capability domain.Capability) bool {
	if p == nil {
		return DefaultPolicy().Can(role, capability)
	}
	_, ok := p.grants[role][capability]
	return ok
}
