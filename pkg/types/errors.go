package types

import (
	"errors"
	"fmt"
)

// AgentRole tags an agent failure with the side that produced it.
type AgentRole string

const (
	RoleBuyer  AgentRole = "buyer"
	RoleSeller AgentRole = "seller"
)

// AgentError wraps a provider or rendering failure that exhausted retries.
// Buyer failures are fatal to the run; seller failures skip one exchange.
type AgentError struct {
	Role     AgentRole
	SellerID string // Set when Role is seller
	Err      error
}

func (e *AgentError) Error() string {
	if e.SellerID != "" {
		return fmt.Sprintf("%s agent failed (seller: %s): %v", e.Role, e.SellerID, e.Err)
	}

	return fmt.Sprintf("%s agent failed: %v", e.Role, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// NewAgentError builds an AgentError for the given role.
func NewAgentError(role AgentRole, sellerID string, err error) *AgentError {
	return &AgentError{Role: role, SellerID: sellerID, Err: err}
}

// InvariantError indicates a programmer error; it is never recovered from.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

// Invariantf builds an InvariantError with a formatted detail.
func Invariantf(format string, args ...any) *InvariantError {
	return &InvariantError{Detail: fmt.Sprintf(format, args...)}
}

// ConfigError indicates an invalid RunSpec or configuration value.
// It is raised synchronously before any event is emitted.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %s", e.Field, e.Detail)
}

// ErrNoSellersAvailable is returned when the selector admits nobody.
var ErrNoSellersAvailable = errors.New("no_sellers_available")
