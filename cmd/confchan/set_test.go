package main

import (
	"testing"

	"github.com/artpar/confchan/domain/value"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		typeName string
		args     []string
		want     value.Value
	}{
		{"bool", []string{"true"}, value.Bool(true)},
		{"uint8", []string{"200"}, value.Uint8(200)},
		{"int16", []string{"-5"}, value.Int16(-5)},
		{"uint16", []string{"40000"}, value.Uint16(40000)},
		{"int32", []string{"24"}, value.Int32(24)},
		{"uint32", []string{"7"}, value.Uint32(7)},
		{"int64", []string{"-9000000000"}, value.Int64(-9000000000)},
		{"uint64", []string{"9000000000"}, value.Uint64(9000000000)},
		{"float32", []string{"1.5"}, value.Float32(1.5)},
		{"float64", []string{"2.25"}, value.Float64(2.25)},
		{"string", []string{"Thunar"}, value.String("Thunar")},
		{"string-list", []string{"en_US", "de_DE"}, value.StringList([]string{"en_US", "de_DE"})},
	}
	for _, tc := range cases {
		got, err := parseValue(tc.typeName, tc.args)
		if err != nil {
			t.Errorf("parseValue(%s, %v): %v", tc.typeName, tc.args, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("parseValue(%s, %v) = %v, want %v", tc.typeName, tc.args, got, tc.want)
		}
	}
}

func TestParseValueErrors(t *testing.T) {
	cases := []struct {
		typeName string
		args     []string
	}{
		{"int32", []string{"not-a-number"}},
		{"uint8", []string{"300"}},
		{"int16", []string{"70000"}},
		{"bool", []string{"maybe"}},
		{"int32", []string{"1", "2"}},
		{"array", []string{"1"}},
		{"unset", []string{"x"}},
		{"flavor", []string{"x"}},
	}
	for _, tc := range cases {
		if _, err := parseValue(tc.typeName, tc.args); err == nil {
			t.Errorf("parseValue(%s, %v): expected error", tc.typeName, tc.args)
		}
	}
}
