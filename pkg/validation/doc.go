// Package validation provides gateway-level shape validation for the two
// message kinds a session sends: the join envelope and tick-time input.
//
// # Creating a Validator
//
//	validator := validation.NewInputValidator(64 * 1024) // 64KB limit
//
// # Validating Messages
//
//	err := validator.Validate("input", params, requestSize)
//	if err != nil {
//	    return fmt.Errorf("invalid message: %w", err)
//	}
//
// # Supported Messages
//
//   - join: { token, worldSaveId, characterName? }
//   - input: { sequenceNumber: int > 0, direction: up|down|left|right }
//
// This layer only checks shape and size; sequence-number freshness and
// session membership are checked downstream by pkg/room's own validator,
// which is the source of truth for those semantics.
package validation
