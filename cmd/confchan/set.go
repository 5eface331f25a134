package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/artpar/confchan/domain/value"
)

var setType string

var setCmd = &cobra.Command{
	Use:   "set <channel> <path> <value>...",
	Short: "Store a property",
	Long: `Store a typed property value.

The --type flag names the native type: bool, uint8, int16, uint16,
int32, uint32, int64, uint64, float32, float64, string, or
string-list. A string-list takes one argument per element.`,
	Args: cobra.MinimumNArgs(3),
	Example: `  confchan set panel /size -t int32 24
  confchan set panel /autohide -t bool true
  confchan set locale /languages -t string-list en_US de_DE`,
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringVarP(&setType, "type", "t", "string", "value type")
}

func runSet(cmd *cobra.Command, args []string) error {
	v, err := parseValue(setType, args[2:])
	if err != nil {
		return err
	}

	svc, err := clientService()
	if err != nil {
		return err
	}
	defer svc.Shutdown()

	ch, err := svc.Channel(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.SetProperty(cmd.Context(), args[1], v)
}

// parseValue builds a Value from CLI arguments. All types except
// string-list take exactly one argument.
func parseValue(typeName string, args []string) (value.Value, error) {
	tag, err := value.ParseTag(typeName)
	if err != nil {
		return value.Unset, err
	}

	if tag == value.TagStringList {
		return value.StringList(args), nil
	}
	if len(args) != 1 {
		return value.Unset, fmt.Errorf("type %s takes exactly one value, got %d", tag, len(args))
	}
	raw := args[0]

	switch tag {
	case value.TagBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Unset, fmt.Errorf("parse bool %q: %w", raw, err)
		}
		return value.Bool(b), nil
	case value.TagUint8:
		u, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			return value.Unset, fmt.Errorf("parse uint8 %q: %w", raw, err)
		}
		return value.Uint8(uint8(u)), nil
	case value.TagInt16:
		i, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return value.Unset, fmt.Errorf("parse int16 %q: %w", raw, err)
		}
		return value.Int16(int16(i)), nil
	case value.TagUint16:
		u, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return value.Unset, fmt.Errorf("parse uint16 %q: %w", raw, err)
		}
		return value.Uint16(uint16(u)), nil
	case value.TagInt32:
		i, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return value.Unset, fmt.Errorf("parse int32 %q: %w", raw, err)
		}
		return value.Int32(int32(i)), nil
	case value.TagUint32:
		u, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return value.Unset, fmt.Errorf("parse uint32 %q: %w", raw, err)
		}
		return value.Uint32(uint32(u)), nil
	case value.TagInt64:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return value.Unset, fmt.Errorf("parse int64 %q: %w", raw, err)
		}
		return value.Int64(i), nil
	case value.TagUint64:
		u, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return value.Unset, fmt.Errorf("parse uint64 %q: %w", raw, err)
		}
		return value.Uint64(u), nil
	case value.TagFloat32:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return value.Unset, fmt.Errorf("parse float32 %q: %w", raw, err)
		}
		return value.Float32(float32(f)), nil
	case value.TagFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Unset, fmt.Errorf("parse float64 %q: %w", raw, err)
		}
		return value.Float64(f), nil
	case value.TagString:
		if err := value.CheckString(raw); err != nil {
			return value.Unset, err
		}
		return value.String(raw), nil
	default:
		return value.Unset, fmt.Errorf("type %s cannot be set from the command line", tag)
	}
}
