// api/model/rule_test.go
package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule(t *testing.T) {
	t.Run("ValidSpendingCap", func(t *testing.T) {
		rule, err := NewRule(RuleSpendingCap, &SpendingCapConfig{
			MaxPerTx:  MustAmount("1000"),
			MaxPerDay: MustAmount("5000"),
		})
		require.NoError(t, err)
		assert.Equal(t, RuleSpendingCap, rule.Type)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := NewRule(RuleType("does-not-exist"), &SpendingCapConfig{})
		assert.Error(t, err)
	})

	t.Run("MismatchedConfig", func(t *testing.T) {
		_, err := NewRule(RuleTimeWindow, &SpendingCapConfig{
			MaxPerTx:  MustAmount("1"),
			MaxPerDay: MustAmount("1"),
		})
		assert.Error(t, err)
	})

	t.Run("InvalidConfigRejectedEagerly", func(t *testing.T) {
		_, err := NewRule(RuleTimeWindow, &TimeWindowConfig{StartHour: 25, EndHour: 3})
		assert.Error(t, err)
	})

	t.Run("NegativeAmountRejected", func(t *testing.T) {
		_, err := NewAmount("-5")
		assert.Error(t, err)
	})
}

func TestRuleRequiresAsync(t *testing.T) {
	voting := MustRule(RuleVoting, &VotingConfig{
		Voters:            []string{"0xa", "0xb", "0xc"},
		RequiredApprovals: 2,
		TimeoutMs:         60000,
	})
	assert.True(t, voting.RequiresAsync())

	cap := MustRule(RuleSpendingCap, &SpendingCapConfig{
		MaxPerTx:  MustAmount("10"),
		MaxPerDay: MustAmount("100"),
	})
	assert.False(t, cap.RequiresAsync())
}

func TestRuleUnmarshalJSON(t *testing.T) {
	t.Run("DispatchesConfigByType", func(t *testing.T) {
		raw := `{"type":"time-window","config":{"startHour":22,"endHour":6}}`
		var rule Rule
		require.NoError(t, json.Unmarshal([]byte(raw), &rule))

		cfg, ok := rule.Config.(*TimeWindowConfig)
		require.True(t, ok)
		assert.Equal(t, 22, cfg.StartHour)
		assert.Equal(t, 6, cfg.EndHour)
	})

	t.Run("AmountFieldsDecodeAsStrings", func(t *testing.T) {
		raw := `{"type":"spending-cap","config":{"maxPerTx":"1000000000000000000","maxPerDay":"5000000000000000000"}}`
		var rule Rule
		require.NoError(t, json.Unmarshal([]byte(raw), &rule))

		cfg := rule.Config.(*SpendingCapConfig)
		assert.Equal(t, "1000000000000000000", cfg.MaxPerTx.String())
	})

	t.Run("UnknownTypeFails", func(t *testing.T) {
		raw := `{"type":"made-up","config":{}}`
		var rule Rule
		assert.Error(t, json.Unmarshal([]byte(raw), &rule))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		rule := MustRule(RuleActionWhitelist, &ActionWhitelistConfig{Actions: []string{"transfer", "approve"}})
		payload, err := json.Marshal(rule)
		require.NoError(t, err)

		var decoded Rule
		require.NoError(t, json.Unmarshal(payload, &decoded))
		assert.Equal(t, rule.Type, decoded.Type)
		assert.Equal(t, rule.Config, decoded.Config)
	})
}

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		name  string
		in    interface{}
		want  string
		valid bool
	}{
		{"String", "12345", "12345", true},
		{"BigIntegerString", "123456789012345678901234567890", "123456789012345678901234567890", true},
		{"Int", 42, "42", true},
		{"IntegralFloat", float64(100), "100", true},
		{"FractionalFloat", 1.5, "", false},
		{"Negative", "-1", "", false},
		{"Garbage", "not-a-number", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CoerceAmount(tc.in)
			if !tc.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}
