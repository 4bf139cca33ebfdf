package queryir

import "github.com/roach88/kspace/internal/ir"

// TargetKnowledgeItem is the only target the engine serves.
const TargetKnowledgeItem = "knowledge_item"

// Action names a single-request operation.
type Action string

const (
	ActionGet    Action = "GET"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
)

// SupportedActions lists the actions accepted for single requests, in the
// order they are reported in InvalidAction errors.
var SupportedActions = []Action{ActionGet, ActionCreate, ActionUpdate}

// Operator is a condition operator. Unrecognized operators are kept as-is:
// the matcher treats them permissively and Validate reports them.
type Operator string

const (
	OpEquals     Operator = "="
	OpNotEquals  Operator = "!="
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
)

// Known reports whether the operator is one the matcher evaluates.
func (o Operator) Known() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpStartsWith:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// ProcessorPromptContextBuilder names the generated-content strategy.
const ProcessorPromptContextBuilder = "prompt_context_builder"

// Request is one decoded DSL request.
//
// This is a sealed interface - only *Get, *Create, *Update and *Batch
// implement it.
type Request interface {
	requestNode()
}

// Condition is a single field/operator/value predicate.
// Value is nil when the request omitted it, which equals only absent fields.
type Condition struct {
	Field    string
	Operator Operator
	Value    ir.IRValue
}

// OrderSpec names a sort key and direction.
type OrderSpec struct {
	Field     string
	Direction Direction
}

// Get is a read query.
//
// Steps run in order: filter (Conditions, AND), sort (OrderBy), Offset,
// Limit, then shaping by Alias. Offset and Limit are nil when absent.
type Get struct {
	Target     string
	Conditions []Condition
	OrderBy    *OrderSpec
	Offset     *int
	Limit      *int
	Alias      string
}

func (*Get) requestNode() {}

// Create adds one item.
type Create struct {
	Target    string
	Type      string
	Directive CreateDirective
}

func (*Create) requestNode() {}

// Update shallow-merges Update onto every item matching Conditions.
type Update struct {
	Target     string
	Conditions []Condition
	Update     ir.IRObject
}

func (*Update) requestNode() {}

// Batch runs read-only queries and keys each result by the query's alias.
type Batch struct {
	Queries []*Get
}

func (*Batch) requestNode() {}

// CreateDirective selects how a Create obtains its content.
//
// This is a sealed interface - only DirectValue and GeneratedContent
// implement it.
type CreateDirective interface {
	directiveNode()
}

// DirectValue stores Content as the item's content.
type DirectValue struct {
	Content ir.IRValue
}

func (DirectValue) directiveNode() {}

// GeneratedContent asks a content generator for the item's content.
// ConfigPath points at the generator configuration file.
type GeneratedContent struct {
	Processor  string
	ConfigPath string
}

func (GeneratedContent) directiveNode() {}

// IntPtr is a convenience for building Offset and Limit.
func IntPtr(n int) *int {
	return &n
}
