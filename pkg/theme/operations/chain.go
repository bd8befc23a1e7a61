package operations

import (
	"fmt"
	"strings"
)

// PackOperations packs a list of operations into a 64-bit integer.
// Each operation takes 8 bits, allowing up to 8 operations in the chain.
// Operations are packed in execution order (first operation in LSB).
func PackOperations(operations []uint8) (uint64, error) {
	if len(operations) > 8 {
		return 0, fmt.Errorf("maximum 8 operations allowed, got %d", len(operations))
	}

	var packed uint64
	for i, op := range operations {
		if op == OP_NONE {
			return 0, fmt.Errorf("operation %d is NONE, which would end the chain", i)
		}
		packed |= uint64(op) << (i * 8)
	}

	return packed, nil
}

// UnpackOperations unpacks a 64-bit integer into a list of operations.
func UnpackOperations(packed uint64) []uint8 {
	var operations []uint8

	for i := 0; i < 8; i++ {
		op := uint8((packed >> (i * 8)) & 0xFF)
		if op == OP_NONE { // terminates the chain
			break
		}
		operations = append(operations, op)
	}

	return operations
}

// OperationsToString converts packed operations to human-readable string.
func OperationsToString(packed uint64) string {
	if packed == 0 {
		return "raw"
	}

	var names []string
	for _, op := range UnpackOperations(packed) {
		names = append(names, strings.ToLower(GetName(op)))
	}
	return strings.Join(names, "|")
}

// Named operations for parsing
var namedOperations = map[string]uint8{
	"GZIP":  OP_GZIP,
	"BZIP2": OP_BZIP2,
	"ZSTD":  OP_ZSTD,
}

// StringToOperations parses "raw", a single operation name, or a
// pipe-separated chain such as "bzip2|zstd".
func StringToOperations(opString string) (uint64, error) {
	opString = strings.TrimSpace(opString)
	if opString == "" || strings.EqualFold(opString, "raw") {
		return 0, nil
	}

	var operations []uint8
	for _, part := range strings.Split(opString, "|") {
		part = strings.TrimSpace(strings.ToUpper(part))
		if part == "" {
			continue
		}

		op, ok := namedOperations[part]
		if !ok {
			return 0, fmt.Errorf("unknown operation: %s", strings.ToLower(part))
		}
		operations = append(operations, op)
	}
	return PackOperations(operations)
}

// ApplyChain applies a chain of operations to data
func ApplyChain(data []byte, packed uint64) ([]byte, error) {
	current := data

	for _, opID := range UnpackOperations(packed) {
		op, err := Get(opID)
		if err != nil {
			return nil, fmt.Errorf("operation 0x%02x: %w", opID, err)
		}

		result, err := op.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("applying %s: %w", op.Name(), err)
		}

		current = result
	}

	return current, nil
}

// ReverseChain reverses a chain of operations on data. The final result is
// bounded by limit. Intermediate results are still compressed, and a
// compressor may expand small or incompressible input slightly, so they are
// bounded by intermediateLimit(limit) instead.
func ReverseChain(data []byte, packed uint64, limit int64) ([]byte, error) {
	current := data
	operations := UnpackOperations(packed)

	// Apply operations in reverse order
	for i := len(operations) - 1; i >= 0; i-- {
		opID := operations[i]
		op, err := Get(opID)
		if err != nil {
			return nil, fmt.Errorf("operation 0x%02x: %w", opID, err)
		}

		stepLimit := limit
		if i > 0 {
			stepLimit = intermediateLimit(limit)
		}
		result, err := op.Reverse(current, stepLimit)
		if err != nil {
			return nil, fmt.Errorf("reversing %s: %w", op.Name(), err)
		}

		current = result
	}

	return current, nil
}

// intermediateLimit covers the worst-case expansion of gzip, bzip2 and zstd
// over limit bytes of input: well under 1/64 plus a fixed header overhead.
func intermediateLimit(limit int64) int64 {
	return limit + limit/64 + 4096
}
