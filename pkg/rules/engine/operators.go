package engine

import "strings"

// evaluateOperator applies a condition operator to a resolved field value
// and the condition literal. It is total: unknown operators and type
// mismatches evaluate to false rather than failing, so a badly typed
// condition can never abort a dispatch.
func evaluateOperator(op Operator, field, literal Value) bool {
	switch op {
	case OperatorEquals:
		return field.Equal(literal)

	case OperatorNotEquals:
		return !field.Equal(literal)

	case OperatorContains:
		// Substring match, strings on both sides only.
		fieldStr, fok := field.AsString()
		literalStr, lok := literal.AsString()
		return fok && lok && strings.Contains(fieldStr, literalStr)

	case OperatorGreaterThan:
		fieldNum, fok := field.AsNumber()
		literalNum, lok := literal.AsNumber()
		return fok && lok && fieldNum > literalNum

	case OperatorLessThan:
		fieldNum, fok := field.AsNumber()
		literalNum, lok := literal.AsNumber()
		return fok && lok && fieldNum < literalNum

	case OperatorIsEmpty:
		return isEmpty(field)

	case OperatorIsNotEmpty:
		return isNotEmpty(field)

	default:
		// Forward-compatible default-deny.
		return false
	}
}

// isEmpty reports true for Undefined, falsy scalars (false, 0) and the
// empty string. Mappings, including empty ones, are never empty under this
// operator; use a field path into the mapping instead.
func isEmpty(v Value) bool {
	switch v.Kind() {
	case KindUndefined:
		return true
	case KindString:
		s, _ := v.AsString()
		return s == ""
	case KindNumber:
		n, _ := v.AsNumber()
		return n == 0
	case KindBool:
		b, _ := v.AsBool()
		return !b
	default:
		return false
	}
}

// isNotEmpty reports true for any defined value that is either not a string
// or a non-empty string. Note that isEmpty and isNotEmpty are not strict
// negations of each other: the number 0 satisfies both, matching the
// operator table they implement.
func isNotEmpty(v Value) bool {
	if v.IsUndefined() {
		return false
	}
	if s, ok := v.AsString(); ok {
		return s != ""
	}
	return true
}
