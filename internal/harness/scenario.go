package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/storefront/internal/activity"
	"github.com/roach88/storefront/internal/shop"
	"github.com/roach88/storefront/internal/testutil"
)

// Scenario is a scripted session against a fully wired app.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Products are seeded into the remote catalog before the app starts.
	// Steps refer to them by id.
	Products []shop.Product `yaml:"products"`

	// Steps run in order. The app settles after each one.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one user or environment action.
type Step struct {
	// Action names what to do, e.g. "cart.add". See the package docs.
	Action string `yaml:"action"`

	// Args are the action arguments.
	Args map[string]any `yaml:"args,omitempty"`
}

// Step actions.
const (
	ActCartAdd        = "cart.add"
	ActCartRemove     = "cart.remove"
	ActCartQuantity   = "cart.update_quantity"
	ActCartClear      = "cart.clear"
	ActFavoriteToggle = "favorites.toggle"
	ActSignIn         = "auth.sign_in"
	ActSignOut        = "auth.sign_out"
	ActUpdateUser     = "auth.update_user"
	ActObserve        = "activity.observe"
	ActCheck          = "activity.check"
	ActClockAdvance   = "clock.advance"
	ActBackendFail    = "backend.fail"
	ActBackendHeal    = "backend.heal"
	ActRestart        = "app.restart"
)

// ActStart labels the trace event recorded when the app first starts.
const ActStart = "app.start"

// OpAll makes backend.fail apply to every record store operation.
const OpAll = "all"

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type selects the check. See the Assert* constants.
	Type string `yaml:"type"`

	// cart
	Items    *int   `yaml:"items,omitempty"`
	Subtotal *int64 `yaml:"subtotal,omitempty"`

	// cart_line
	Product  string `yaml:"product,omitempty"`
	Size     string `yaml:"size,omitempty"`
	Color    string `yaml:"color,omitempty"`
	Quantity *int   `yaml:"quantity,omitempty"`

	// favorites, remote_favorites
	IDs    []string `yaml:"ids,omitempty"`
	Source string   `yaml:"source,omitempty"`

	// identity, remote_favorites
	User string `yaml:"user,omitempty"`

	// notice
	Message  string `yaml:"message,omitempty"`
	Severity string `yaml:"severity,omitempty"`
	Count    *int   `yaml:"count,omitempty"`

	// device
	Key     string `yaml:"key,omitempty"`
	Present *bool  `yaml:"present,omitempty"`
}

// Assertion types.
const (
	AssertCart            = "cart"
	AssertCartLine        = "cart_line"
	AssertFavorites       = "favorites"
	AssertRemoteFavorites = "remote_favorites"
	AssertIdentity        = "identity"
	AssertNotice          = "notice"
	AssertDevice          = "device"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

// validateScenario checks required fields and step arguments.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	catalog := make(map[string]bool, len(s.Products))
	for i, p := range s.Products {
		if p.ID == "" {
			return fmt.Errorf("products[%d]: id is required", i)
		}
		if catalog[p.ID] {
			return fmt.Errorf("products[%d]: duplicate id %q", i, p.ID)
		}
		if p.Price < 0 {
			return fmt.Errorf("products[%d]: price must be non-negative", i)
		}
		catalog[p.ID] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(step, catalog); err != nil {
			return fmt.Errorf("steps[%d] %s: %w", i, step.Action, err)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, catalog map[string]bool) error {
	args := step.Args
	needProduct := func() error {
		id, err := argString(args, "product")
		if err != nil {
			return err
		}
		if !catalog[id] {
			return fmt.Errorf("unknown product %q", id)
		}
		return nil
	}

	switch step.Action {
	case ActCartAdd:
		if err := needProduct(); err != nil {
			return err
		}
		_, err := argIntOr(args, "quantity", 1)
		return err
	case ActCartRemove, ActFavoriteToggle:
		return needProduct()
	case ActCartQuantity:
		if err := needProduct(); err != nil {
			return err
		}
		_, err := argInt(args, "quantity")
		return err
	case ActSignIn, ActUpdateUser:
		_, err := argString(args, "user")
		return err
	case ActObserve:
		kind, err := argString(args, "kind")
		if err != nil {
			return err
		}
		if !activity.Interaction(kind).Qualifies() {
			return fmt.Errorf("kind %q is not a qualifying interaction", kind)
		}
		return nil
	case ActClockAdvance:
		_, err := argDuration(args, "duration")
		return err
	case ActBackendFail:
		op, err := argString(args, "op")
		if err != nil {
			return err
		}
		switch op {
		case OpAll, testutil.OpSelectByIDs, testutil.OpSelectWhere, testutil.OpInsert, testutil.OpDeleteWhere:
		default:
			return fmt.Errorf("unknown op %q", op)
		}
		times, err := argIntOr(args, "times", 0)
		if err != nil {
			return err
		}
		if times < 0 {
			return fmt.Errorf("times must be non-negative")
		}
		return nil
	case ActRestart:
		_, err := argBoolOr(args, "unreachable", false)
		return err
	case ActCartClear, ActSignOut, ActCheck, ActBackendHeal:
		return nil
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action")
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCart:
		if a.Items == nil && a.Subtotal == nil {
			return fmt.Errorf("assertions[%d]: items or subtotal is required for cart", index)
		}
	case AssertCartLine:
		if a.Product == "" {
			return fmt.Errorf("assertions[%d]: product is required for cart_line", index)
		}
	case AssertFavorites:
		if a.IDs == nil && a.Source == "" {
			return fmt.Errorf("assertions[%d]: ids or source is required for favorites", index)
		}
	case AssertRemoteFavorites:
		if a.User == "" {
			return fmt.Errorf("assertions[%d]: user is required for remote_favorites", index)
		}
	case AssertIdentity:
	case AssertNotice:
		if a.Message == "" && a.Severity == "" {
			return fmt.Errorf("assertions[%d]: message or severity is required for notice", index)
		}
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notice", index)
		}
	case AssertDevice:
		if a.Key == "" || a.Present == nil {
			return fmt.Errorf("assertions[%d]: key and present are required for device", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func argString(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("%s is required", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", name)
	}
	return s, nil
}

func argStringOr(args map[string]any, name, def string) (string, error) {
	if _, ok := args[name]; !ok {
		return def, nil
	}
	return argString(args, name)
}

func argInt(args map[string]any, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func argIntOr(args map[string]any, name string, def int) (int, error) {
	if _, ok := args[name]; !ok {
		return def, nil
	}
	return argInt(args, name)
}

func argBoolOr(args map[string]any, name string, def bool) (bool, error) {
	v, ok := args[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return b, nil
}

func argDuration(args map[string]any, name string) (time.Duration, error) {
	s, err := argString(args, name)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}
