package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/marketplace/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Accounts maps account names to identities.
	Accounts map[string]string `yaml:"accounts"`

	// Deployer is the account that deploys the marketplace.
	Deployer string `yaml:"deployer"`

	// TxPrefix prefixes the fixed tx ids ("<prefix>-1", ...).
	// Defaults to "tx".
	TxPrefix string `yaml:"tx_prefix,omitempty"`

	// Steps run in order against one marketplace.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes one marketplace operation.
type Step struct {
	// Op is the operation: addAdmin, deleteAdmin, addApprovedStoreOwner,
	// deleteApprovedStoreOwner or createStore.
	Op string `yaml:"op"`

	// From is the requesting account.
	From string `yaml:"from"`

	// Target is the account a role operation acts on.
	Target string `yaml:"target,omitempty"`

	// Name is the store name for createStore.
	Name string `yaml:"name,omitempty"`

	// Watch registers a one-shot observer for this entry kind before the
	// call. On success the delivered entry must name the step's requester
	// and subject.
	Watch string `yaml:"watch,omitempty"`

	// Expect specifies the expected outcome. If nil the call must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assert runs after the step.
	Assert []Assertion `yaml:"assert,omitempty"`
}

// ExpectClause specifies an expected rejection.
type ExpectClause struct {
	// Error is the expected error code (e.g. "UNAUTHORIZED").
	Error string `yaml:"error"`
}

// Assertion validates marketplace state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "role": Account holds Role
	// - "stores_num": the marketplace holds Count stores
	// - "stores": store names and owners, in creation order
	// - "sentinel": the store at Index reports Value from Dummy
	// - "entry_count": the log holds Count entries of Kind (all kinds if empty)
	Type string `yaml:"type"`

	Account string   `yaml:"account,omitempty"`
	Role    string   `yaml:"role,omitempty"`
	Count   int      `yaml:"count,omitempty"`
	Kind    string   `yaml:"kind,omitempty"`
	Names   []string `yaml:"names,omitempty"`
	Owners  []string `yaml:"owners,omitempty"`
	Index   int      `yaml:"index,omitempty"`
	Value   uint64   `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertRole       = "role"
	AssertStoresNum  = "stores_num"
	AssertStores     = "stores"
	AssertSentinel   = "sentinel"
	AssertEntryCount = "entry_count"
)

// Operation names accepted in steps.
const (
	OpAddAdmin                 = "addAdmin"
	OpDeleteAdmin              = "deleteAdmin"
	OpAddApprovedStoreOwner    = "addApprovedStoreOwner"
	OpDeleteApprovedStoreOwner = "deleteApprovedStoreOwner"
	OpCreateStore              = "createStore"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Accounts) == 0 {
		return fmt.Errorf("accounts map is required and must be non-empty")
	}
	for name, addr := range s.Accounts {
		if _, err := ir.ParseIdentity(addr); err != nil {
			return fmt.Errorf("accounts.%s: %w", name, err)
		}
	}
	if s.Deployer == "" {
		return fmt.Errorf("deployer is required")
	}
	if _, ok := s.Accounts[s.Deployer]; !ok {
		return fmt.Errorf("deployer %q is not a declared account", s.Deployer)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(fmt.Sprintf("assertions[%d]", i), &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	if step.From == "" {
		return fmt.Errorf("steps[%d]: from is required", index)
	}
	switch step.Op {
	case OpAddAdmin, OpDeleteAdmin, OpAddApprovedStoreOwner, OpDeleteApprovedStoreOwner:
		if step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", index, step.Op)
		}
	case OpCreateStore:
		// An empty name is a legitimate negative case; the marketplace rejects it.
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Watch != "" {
		if _, err := ir.ParseKind(step.Watch); err != nil {
			return fmt.Errorf("steps[%d].watch: %w", index, err)
		}
	}
	if step.Expect != nil && step.Expect.Error == "" {
		return fmt.Errorf("steps[%d].expect: error is required", index)
	}
	for j, a := range step.Assert {
		if err := validateAssertion(fmt.Sprintf("steps[%d].assert[%d]", index, j), &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(where string, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("%s: type is required", where)
	case AssertRole:
		if a.Account == "" {
			return fmt.Errorf("%s: account is required for role", where)
		}
		if _, err := ir.ParseRole(a.Role); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	case AssertStoresNum, AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative for %s", where, a.Type)
		}
		if a.Kind != "" {
			if _, err := ir.ParseKind(a.Kind); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
	case AssertStores:
		if len(a.Owners) > 0 && len(a.Owners) != len(a.Names) {
			return fmt.Errorf("%s: owners must align with names", where)
		}
	case AssertSentinel:
		if a.Index < 0 {
			return fmt.Errorf("%s: index must be non-negative", where)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}
	return nil
}
