// api/codec/codec.go

// Package codec encodes rules into the compact form consumed by the
// anchoring collaborator: a stable numeric rule-type code plus an opaque
// config byte sequence. The format carries time-valued fields at hour
// precision only: minutes and seconds are discarded on encode, and decoding
// yields hour-only values even when the original was finer-grained.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	"github.com/warden-labs/warden/api/model"
)

// RawRule is the loosely typed rule envelope the codec operates on. Using a
// generic config keeps the code table decoupled from the checker configs.
type RawRule struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// SerializedRule pairs the stable numeric code with the encoded config.
type SerializedRule struct {
	RuleType uint16 `json:"ruleType"`
	Config   []byte `json:"config"`
}

// ruleTypeCodes is the stable string->code table. APPEND ONLY: codes are
// anchored off-device and must never be reassigned or reused.
var ruleTypeCodes = map[string]uint16{
	"spending-cap":       1,
	"time-window":        2,
	"action-whitelist":   3,
	"per-address-limit":  4,
	"per-function-limit": 5,
	"global-limit":       6,
	"value-limit":        7,
	"gas-limit":          8,
	"progressive-limit":  9,
	"reputation-limit":   10,
	"cooldown":           11,
	"after-timestamp":    12,
	"before-timestamp":   13,
	"require-payment":    14,
	"schedule":           15,
	"block-delay":        16,
	"epoch-based":        17,
	"event-triggered":    18,
	"whitelist":          19,
	"nft-gated":          20,
	"dao-approval":       21,
	"voting":             22,
	"human-approval":     23,
}

var codeRuleTypes = func() map[uint16]string {
	m := make(map[uint16]string, len(ruleTypeCodes))
	for t, c := range ruleTypeCodes {
		m[c] = t
	}
	return m
}()

// timeValuedFields lists, per rule type, the config fields subject to
// hour-precision truncation on encode.
var timeValuedFields = map[string][]string{
	"time-window": {"start", "end"},
	"schedule":    {"start", "end"},
}

// RuleTypeCode returns the stable code for a rule-type string.
func RuleTypeCode(ruleType string) (uint16, bool) {
	c, ok := ruleTypeCodes[ruleType]
	return c, ok
}

// SerializeRule encodes a rule into its compact form. Encoding never fails
// for a known rule type with a JSON-representable config; lossiness on time
// fields is intentional, not an error.
func SerializeRule(rule RawRule) (SerializedRule, error) {
	code, ok := ruleTypeCodes[rule.Type]
	if !ok {
		return SerializedRule{}, fmt.Errorf("%w: no code assigned to rule type %q", wardenerrors.ErrUnknownRuleType, rule.Type)
	}

	config := rule.Config
	if fields := timeValuedFields[rule.Type]; len(fields) > 0 && config != nil {
		config = make(map[string]interface{}, len(rule.Config))
		for k, v := range rule.Config {
			config[k] = v
		}
		for _, field := range fields {
			if v, ok := config[field]; ok {
				config[field] = truncateToHour(v)
			}
		}
	}

	// Go's JSON encoder writes map keys in sorted order, so the config
	// bytes are canonical and safe to anchor.
	payload, err := json.Marshal(config)
	if err != nil {
		return SerializedRule{}, fmt.Errorf("failed to encode %s config: %w", rule.Type, err)
	}
	return SerializedRule{RuleType: code, Config: payload}, nil
}

// DeserializeRule decodes the compact form back into a rule. Time-valued
// fields come back at hour precision; that is the documented resolution of
// the format.
func DeserializeRule(encoded SerializedRule) (RawRule, error) {
	ruleType, ok := codeRuleTypes[encoded.RuleType]
	if !ok {
		return RawRule{}, fmt.Errorf("%w: unassigned rule-type code %d", wardenerrors.ErrMalformedEncoding, encoded.RuleType)
	}

	var config map[string]interface{}
	if len(encoded.Config) > 0 {
		if err := json.Unmarshal(encoded.Config, &config); err != nil {
			return RawRule{}, fmt.Errorf("%w: undecodable config for %s: %v", wardenerrors.ErrMalformedEncoding, ruleType, err)
		}
	}
	return RawRule{Type: ruleType, Config: config}, nil
}

// EncodeRule serializes a typed rule from the model.
func EncodeRule(rule model.Rule) (SerializedRule, error) {
	raw, err := fromModel(rule)
	if err != nil {
		return SerializedRule{}, err
	}
	return SerializeRule(raw)
}

const (
	wireMagic   = "WR"
	wireVersion = byte(1)
)

// MarshalBinary frames the serialized rule for the wire:
// magic "WR", version byte, big-endian code, config bytes.
func (s SerializedRule) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(wireMagic)
	buf.WriteByte(wireVersion)
	if err := binary.Write(&buf, binary.BigEndian, s.RuleType); err != nil {
		return nil, err
	}
	buf.Write(s.Config)
	return buf.Bytes(), nil
}

// UnmarshalBinary parses a wire frame, failing loudly on malformation.
func (s *SerializedRule) UnmarshalBinary(data []byte) error {
	if len(data) < 5 {
		return fmt.Errorf("%w: frame of %d bytes is shorter than the header", wardenerrors.ErrMalformedEncoding, len(data))
	}
	if string(data[:2]) != wireMagic {
		return fmt.Errorf("%w: bad magic %q", wardenerrors.ErrMalformedEncoding, data[:2])
	}
	if data[2] != wireVersion {
		return fmt.Errorf("%w: unsupported version %d", wardenerrors.ErrMalformedEncoding, data[2])
	}
	s.RuleType = binary.BigEndian.Uint16(data[3:5])
	s.Config = append([]byte(nil), data[5:]...)
	return nil
}

// truncateToHour reduces a time value to its hour component, rendered as a
// plain decimal string: "09:30" becomes "9". Values that are not
// hour-shaped pass through unchanged.
func truncateToHour(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		hourPart := t
		if idx := strings.IndexByte(t, ':'); idx >= 0 {
			hourPart = t[:idx]
		}
		h, err := strconv.Atoi(hourPart)
		if err != nil || h < 0 || h > 23 {
			return v
		}
		return strconv.Itoa(h)
	case float64:
		return float64(int(t))
	default:
		return v
	}
}

func fromModel(rule model.Rule) (RawRule, error) {
	payload, err := json.Marshal(rule.Config)
	if err != nil {
		return RawRule{}, fmt.Errorf("failed to flatten %s config: %w", rule.Type, err)
	}
	var config map[string]interface{}
	if err := json.Unmarshal(payload, &config); err != nil {
		return RawRule{}, fmt.Errorf("failed to flatten %s config: %w", rule.Type, err)
	}
	return RawRule{Type: string(rule.Type), Config: config}, nil
}
