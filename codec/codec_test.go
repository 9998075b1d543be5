// api/codec/codec_test.go
package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wardenerrors "github.com/warden-labs/warden/api/errors"
	"github.com/warden-labs/warden/api/model"
)

func TestSerializeRuleRoundTrip(t *testing.T) {
	rule := RawRule{
		Type: "action-whitelist",
		Config: map[string]interface{}{
			"actions": []interface{}{"transfer", "swap"},
		},
	}

	encoded, err := SerializeRule(rule)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), encoded.RuleType)

	decoded, err := DeserializeRule(encoded)
	require.NoError(t, err)
	assert.Equal(t, rule.Type, decoded.Type)
	assert.Equal(t, rule.Config, decoded.Config)
}

func TestSerializeRuleRequirePayment(t *testing.T) {
	encoded, err := SerializeRule(RawRule{
		Type:   "require-payment",
		Config: map[string]interface{}{"minAmount": "250"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(14), encoded.RuleType)

	decoded, err := DeserializeRule(encoded)
	require.NoError(t, err)
	assert.Equal(t, "require-payment", decoded.Type)
	assert.Equal(t, "250", decoded.Config["minAmount"])
}

// Operators write minimums in decimal notation; the codec must carry the
// string through untouched, exempt list included.
func TestSerializeRuleRequirePaymentDecimalNotation(t *testing.T) {
	rule := RawRule{
		Type: "require-payment",
		Config: map[string]interface{}{
			"minAmount":     "1.00",
			"exemptActions": []interface{}{"read"},
		},
	}

	encoded, err := SerializeRule(rule)
	require.NoError(t, err)

	decoded, err := DeserializeRule(encoded)
	require.NoError(t, err)
	assert.Equal(t, "require-payment", decoded.Type)
	assert.Equal(t, "1.00", decoded.Config["minAmount"])
	assert.Equal(t, []interface{}{"read"}, decoded.Config["exemptActions"])
}

func TestSerializeRuleTruncatesTimeFields(t *testing.T) {
	tests := []struct {
		name     string
		ruleType string
		in       interface{}
		want     interface{}
	}{
		{"ClockStringDropsMinutes", "time-window", "09:30", "9"},
		{"BareHourStringNormalized", "time-window", "17", "17"},
		{"ScheduleSharesTheRule", "schedule", "23:59", "23"},
		{"FractionalHourFloors", "time-window", 9.75, 9.0},
		{"NonHourStringPassesThrough", "time-window", "not-a-time", "not-a-time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := SerializeRule(RawRule{
				Type:   tt.ruleType,
				Config: map[string]interface{}{"start": tt.in},
			})
			require.NoError(t, err)

			decoded, err := DeserializeRule(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded.Config["start"])
		})
	}
}

func TestSerializeRuleDoesNotMutateInput(t *testing.T) {
	cfg := map[string]interface{}{"start": "09:30", "end": "17:45"}
	_, err := SerializeRule(RawRule{Type: "time-window", Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, "09:30", cfg["start"])
	assert.Equal(t, "17:45", cfg["end"])
}

func TestSerializeRuleUnknownType(t *testing.T) {
	_, err := SerializeRule(RawRule{Type: "lunar-phase"})
	assert.ErrorIs(t, err, wardenerrors.ErrUnknownRuleType)
}

func TestDeserializeRuleMalformed(t *testing.T) {
	_, err := DeserializeRule(SerializedRule{RuleType: 9999})
	assert.ErrorIs(t, err, wardenerrors.ErrMalformedEncoding)

	_, err = DeserializeRule(SerializedRule{RuleType: 1, Config: []byte("{not json")})
	assert.ErrorIs(t, err, wardenerrors.ErrMalformedEncoding)
}

func TestEncodeRuleFromModel(t *testing.T) {
	rule := model.MustRule(model.RuleSpendingCap, &model.SpendingCapConfig{
		MaxPerTx:  model.MustAmount("100"),
		MaxPerDay: model.MustAmount("1000"),
	})

	encoded, err := EncodeRule(rule)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), encoded.RuleType)

	decoded, err := DeserializeRule(encoded)
	require.NoError(t, err)
	assert.Equal(t, "100", decoded.Config["maxPerTx"])
	assert.Equal(t, "1000", decoded.Config["maxPerDay"])
}

func TestWireFrameRoundTrip(t *testing.T) {
	encoded, err := SerializeRule(RawRule{
		Type:   "cooldown",
		Config: map[string]interface{}{"cooldownMs": 60000.0},
	})
	require.NoError(t, err)

	frame, err := encoded.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, byte('W'), frame[0])
	assert.Equal(t, byte('R'), frame[1])
	assert.Equal(t, byte(1), frame[2])

	var parsed SerializedRule
	require.NoError(t, parsed.UnmarshalBinary(frame))
	assert.Equal(t, encoded.RuleType, parsed.RuleType)
	assert.Equal(t, encoded.Config, parsed.Config)
}

func TestUnmarshalBinaryRejectsBadFrames(t *testing.T) {
	var s SerializedRule

	assert.ErrorIs(t, s.UnmarshalBinary([]byte("WR")), wardenerrors.ErrMalformedEncoding)
	assert.ErrorIs(t, s.UnmarshalBinary([]byte("XX\x01\x00\x01")), wardenerrors.ErrMalformedEncoding)
	assert.ErrorIs(t, s.UnmarshalBinary([]byte("WR\x02\x00\x01")), wardenerrors.ErrMalformedEncoding)
}
