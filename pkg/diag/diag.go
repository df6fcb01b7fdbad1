// Package diag implements the compiler's diagnostic channel: a fixed
// vocabulary of warning/error kinds, each carrying a source location, that
// every analyzer pass appends to in encounter order, never sorted.
package diag

import (
	"fmt"
	"strings"

	"github.com/novalang/novac/pkg/source"
)

// Severity distinguishes recoverable observations from hard failures.
// Warning exists as a channel but, matching the source compiler, no pass
// currently emits one (see Open Questions in DESIGN.md); it is kept ready.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind enumerates every diagnostic the frontend can produce. Each has a
// fixed Code and a human-readable message template.
type Kind int

const (
	UnresolvedImport Kind = iota
	ParseError
	TypeAlreadyDeclared
	TypeTemplateAlreadyDeclared
	TypeNameIsReserved
	CyclicStruct
	DuplicateField
	FieldNameConflictsWithType
	DuplicateTypeInUnion
	NonUnionIsExpression
	UncheckedAsWithConst
	DuplicateEntryNameInEnum
	DuplicateEntryValueInEnum
	IncorrectReturnTypeInConv
	NonOverloadableOperator
	NonPureOperatorOverload
	TemplatedImplicitConversion
	ImplicitNonConv
	TooManyInputsInImplicitConv
	DuplicateFuncDeclaration
	UnableToInferFuncReturnType
	NonMatchingFuncReturnType
	NonMatchingInitializerType
	UnableToInferLambdaReturnType
	ConstNameConflictsType
	ConstNameConflictsSubstitution
	ConstNameConflictsConst
	ConstDeclareNotSupported
	UndeclaredType
	UndeclaredTypeOrConversion
	NoTypeOrConversionToInstantiate
	TypeParamOnSubstitutionType
	InvalidTypeInstantiation
	UndeclaredConst
	UninitializedConst
	UndeclaredPureFunc
	UndeclaredAction
	UndeclaredFuncOrAction
	UnknownIntrinsic
	PureFuncInfRecursion
	NoPureFuncToInstantiate
	NoActionToInstantiate
	NoFuncOrActionToInstantiate
	AmbiguousFunction
	AmbiguousTemplateFunction
	IllegalDelegateCall
	IncorrectArgsToDelegate
	UndeclaredCallOperator
	UndeclaredIndexOperator
	InvalidFuncInstantiation
	UnsupportedOperator
	UndeclaredUnaryOperator
	UndeclaredBinOperator
	BranchesHaveNoCommonType
	NoImplicitConversionFound
	NonExhaustiveSwitchWithoutElse
	NonPureConversion
	ForkedNonUserFunc
	LazyNonUserFunc
	ForkedSelfCall
	LazySelfCall
	SelfCallInNonFunc
	SelfCallWithoutInferredRetType
	IncorrectNumArgsInSelfCall
	IntrinsicFuncLiteral
	UnsupportedArgInitializer
	NonOptArgFollowingOpt
	CyclicOptArgInitializer
)

// codes assigns a stable identifier to every Kind so callers can switch on
// diagnostic identity instead of matching message text.
var codes = map[Kind]string{
	UnresolvedImport:                "E0001",
	ParseError:                      "E0002",
	TypeAlreadyDeclared:             "E0010",
	TypeTemplateAlreadyDeclared:     "E0011",
	TypeNameIsReserved:              "E0012",
	CyclicStruct:                    "E0020",
	DuplicateField:                  "E0021",
	FieldNameConflictsWithType:      "E0022",
	DuplicateTypeInUnion:            "E0023",
	NonUnionIsExpression:            "E0024",
	UncheckedAsWithConst:            "E0025",
	DuplicateEntryNameInEnum:        "E0026",
	DuplicateEntryValueInEnum:       "E0027",
	IncorrectReturnTypeInConv:       "E0030",
	NonOverloadableOperator:         "E0031",
	NonPureOperatorOverload:         "E0032",
	TemplatedImplicitConversion:     "E0033",
	ImplicitNonConv:                 "E0034",
	TooManyInputsInImplicitConv:     "E0035",
	DuplicateFuncDeclaration:        "E0040",
	UnableToInferFuncReturnType:     "E0041",
	NonMatchingFuncReturnType:       "E0042",
	NonMatchingInitializerType:      "E0043",
	UnableToInferLambdaReturnType:   "E0044",
	ConstNameConflictsType:          "E0050",
	ConstNameConflictsSubstitution:  "E0051",
	ConstNameConflictsConst:         "E0052",
	ConstDeclareNotSupported:        "E0053",
	UndeclaredType:                  "E0060",
	UndeclaredTypeOrConversion:      "E0061",
	NoTypeOrConversionToInstantiate: "E0062",
	TypeParamOnSubstitutionType:     "E0063",
	InvalidTypeInstantiation:        "E0064",
	UndeclaredConst:                 "E0070",
	UninitializedConst:              "E0071",
	UndeclaredPureFunc:              "E0080",
	UndeclaredAction:                "E0081",
	UndeclaredFuncOrAction:          "E0082",
	UnknownIntrinsic:                "E0083",
	PureFuncInfRecursion:            "E0090",
	NoPureFuncToInstantiate:         "E0091",
	NoActionToInstantiate:           "E0092",
	NoFuncOrActionToInstantiate:     "E0093",
	AmbiguousFunction:               "E0100",
	AmbiguousTemplateFunction:       "E0101",
	IllegalDelegateCall:             "E0110",
	IncorrectArgsToDelegate:         "E0111",
	UndeclaredCallOperator:          "E0112",
	UndeclaredIndexOperator:         "E0113",
	InvalidFuncInstantiation:        "E0114",
	UnsupportedOperator:             "E0120",
	UndeclaredUnaryOperator:         "E0121",
	UndeclaredBinOperator:           "E0122",
	BranchesHaveNoCommonType:        "E0130",
	NoImplicitConversionFound:       "E0131",
	NonExhaustiveSwitchWithoutElse:  "E0132",
	NonPureConversion:               "E0133",
	ForkedNonUserFunc:               "E0140",
	LazyNonUserFunc:                 "E0141",
	ForkedSelfCall:                  "E0142",
	LazySelfCall:                    "E0143",
	SelfCallInNonFunc:               "E0144",
	SelfCallWithoutInferredRetType:  "E0145",
	IncorrectNumArgsInSelfCall:      "E0146",
	IntrinsicFuncLiteral:            "E0150",
	UnsupportedArgInitializer:       "E0151",
	NonOptArgFollowingOpt:           "E0152",
	CyclicOptArgInitializer:         "E0153",
}

// Code returns the diagnostic kind's stable identifier.
func (k Kind) Code() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return "E0000"
}

// Diagnostic is a single analyzer observation anchored at a source span.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Source   source.ID
	Span     source.Span
}

// Bag accumulates diagnostics across a pipeline run in encounter order.
type Bag struct {
	items []Diagnostic
}

// Add appends a formatted diagnostic.
func (b *Bag) Add(sev Severity, kind Kind, id source.ID, span source.Span, format string, args ...any) {
	b.items = append(b.items, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Source:   id,
		Span:     span,
	})
}

// Errorf appends an Error-severity diagnostic.
func (b *Bag) Errorf(kind Kind, id source.ID, span source.Span, format string, args ...any) {
	b.Add(Error, kind, id, span, format, args...)
}

// Warnf appends a Warning-severity diagnostic.
func (b *Bag) Warnf(kind Kind, id source.ID, span source.Span, format string, args ...any) {
	b.Add(Warning, kind, id, span, format, args...)
}

// HasErrors reports whether any Error-severity diagnostic was recorded;
// the analyzer consults this between passes to short-circuit.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Items returns every diagnostic recorded so far, in encounter order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Len reports how many diagnostics have been recorded.
func (b *Bag) Len() int {
	return len(b.items)
}

// Render renders every diagnostic as plain text against tbl, one line per
// diagnostic: "<severity> <code> <source>:<line>:<col>: <message>". This is
// the compiler's whole rendering surface; ANSI coloring and interactive
// rendering belong to the peripheral diagnostic-dump tool, out of scope.
func Render(items []Diagnostic, tbl *source.Table) string {
	var b strings.Builder
	for _, d := range items {
		loc := "?"
		if s := tbl.Get(d.Source); s != nil {
			pos := s.Pos(d.Span.Start)
			loc = fmt.Sprintf("%s:%d:%d", s.Name, pos.Line, pos.Column)
		}
		fmt.Fprintf(&b, "%s %s %s: %s\n", d.Severity, d.Kind.Code(), loc, d.Message)
	}
	return b.String()
}
