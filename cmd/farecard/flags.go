package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// uuidValue is a pflag.Value holding a uuid.UUID. The zero value means unset.
type uuidValue struct{ id *uuid.UUID }

var _ pflag.Value = uuidValue{}

func (v uuidValue) String() string {
	if v.id == nil || *v.id == uuid.Nil {
		return ""
	}
	return v.id.String()
}

func (v uuidValue) Set(s string) error {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid UUID %q", s)
	}
	*v.id = id
	return nil
}

func (uuidValue) Type() string { return "uuid" }

// uuidSliceValue collects a repeatable UUID flag.
type uuidSliceValue struct{ ids *[]uuid.UUID }

var _ pflag.Value = uuidSliceValue{}

func (v uuidSliceValue) String() string {
	if v.ids == nil {
		return ""
	}
	parts := make([]string, len(*v.ids))
	for i, id := range *v.ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func (v uuidSliceValue) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid UUID %q", part)
		}
		*v.ids = append(*v.ids, id)
	}
	return nil
}

func (uuidSliceValue) Type() string { return "uuids" }

// decimalValue is a pflag.Value holding a money amount.
type decimalValue struct{ d *decimal.Decimal }

var _ pflag.Value = decimalValue{}

func (v decimalValue) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.String()
}

func (v decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	*v.d = d
	return nil
}

func (decimalValue) Type() string { return "amount" }

func uuidFlag(fs *pflag.FlagSet, name, usage string) *uuid.UUID {
	id := new(uuid.UUID)
	fs.Var(uuidValue{id}, name, usage)
	return id
}

func uuidSliceFlag(fs *pflag.FlagSet, name, usage string) *[]uuid.UUID {
	ids := new([]uuid.UUID)
	fs.Var(uuidSliceValue{ids}, name, usage)
	return ids
}

func decimalFlag(fs *pflag.FlagSet, name, usage string) *decimal.Decimal {
	d := new(decimal.Decimal)
	fs.Var(decimalValue{d}, name, usage)
	return d
}

// splitArgs splits a batch line into arguments with shell quoting rules.
func splitArgs(line string) ([]string, error) {
	args, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("cannot split %q: %w", line, err)
	}
	return args, nil
}
