// Package config loads the policy file: readiness thresholds, the
// organization role promotion ceiling and strict readiness enforcement.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
	"github.com/nluhub/nluhub/internal/readiness"
	"gopkg.in/yaml.v3"
)

// Policy is the engine policy.
type Policy struct {
	Readiness readiness.Policy `yaml:"readiness" json:"readiness"`

	// PromotionCeiling is the organization role name at and above which
	// membership no longer promotes repository roles.
	PromotionCeiling string `yaml:"promotion_ceiling" json:"promotion_ceiling"`

	// StrictReadiness refuses to start training while blocking requirements remain.
	StrictReadiness bool `yaml:"strict_readiness" json:"strict_readiness"`
}

// Default returns the policy used when no file is given.
func Default() *Policy {
	return &Policy{
		Readiness:        readiness.DefaultPolicy(),
		PromotionCeiling: authz.DefaultPromotionCeiling.String(),
	}
}

// ApplyDefaults fills unset fields.
func (p *Policy) ApplyDefaults() {
	p.Readiness.ApplyDefaults()
	if p.PromotionCeiling == "" {
		p.PromotionCeiling = authz.DefaultPromotionCeiling.String()
	}
}

// Validate checks the policy.
func (p *Policy) Validate() error {
	if err := p.Readiness.Validate(); err != nil {
		return fmt.Errorf("readiness: %w", err)
	}
	if _, err := p.Ceiling(); err != nil {
		return err
	}
	return nil
}

// Ceiling parses PromotionCeiling.
func (p *Policy) Ceiling() (models.OrgRole, error) {
	role, ok := models.ParseOrgRole(p.PromotionCeiling)
	if !ok {
		return 0, fmt.Errorf("promotion_ceiling: unknown organization role %q", p.PromotionCeiling)
	}
	return role, nil
}

// Load reads a policy file. Files ending in .json are parsed as JSON,
// anything else as YAML. An empty path returns the default policy.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	policy := &Policy{}

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := json.Unmarshal(data, policy); err != nil {
			return nil, fmt.Errorf("failed to parse JSON policy: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, policy); err != nil {
			return nil, fmt.Errorf("failed to parse YAML policy: %w", err)
		}
	}

	policy.ApplyDefaults()

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}

	return policy, nil
}
